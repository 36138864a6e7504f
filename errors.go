package main

import "github.com/pkg/errors"

// Error kinds reported by the fixer. Callers match them with errors.Is;
// the returned errors carry the file and cause as message context.
var (
	ErrSidecarNotFound   = errors.New("sidecar not found")
	ErrSidecarFormat     = errors.New("malformed sidecar")
	ErrTimestampFormat   = errors.New("unrecognized timestamp format")
	ErrMetadataContainer = errors.New("metadata container unreadable or unwritable")
	ErrDestinationExists = errors.New("destination already exists")
	ErrDirectoryList     = errors.New("cannot list working folder")
)
