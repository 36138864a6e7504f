package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// RouteFile moves sourcePath into destinationFolder under fileName,
// creating the folder if needed. An existing file of the same name is
// never replaced: ErrDestinationExists is returned and the source stays.
func RouteFile(fileName, sourcePath, destinationFolder string) error {
	if err := os.MkdirAll(destinationFolder, 0755); err != nil {
		return errors.Wrapf(err, "create directory %s", destinationFolder)
	}

	destPath := filepath.Join(destinationFolder, fileName)
	if _, err := os.Lstat(destPath); err == nil {
		return errors.WithMessagef(ErrDestinationExists, "%s", destPath)
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "check %s", destPath)
	}

	// Rename is atomic within a filesystem, and the quarantine folders
	// live inside the working folder.
	if err := os.Rename(sourcePath, destPath); err != nil {
		return errors.Wrapf(err, "move %s", sourcePath)
	}
	return nil
}
