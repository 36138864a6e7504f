package main

import (
	"os/exec"

	"github.com/barasher/go-exiftool"
	"github.com/pkg/errors"
)

// exiftool reports EXIF tags under their own names: IFD0 DateTime is
// ModifyDate and DateTimeDigitized is CreateDate. The group prefix keeps
// XMP or QuickTime values of the same name from counting as present.
var exiftoolTags = map[exifField]string{
	fieldDateTime:          "EXIF:ModifyDate",
	fieldDateTimeDigitized: "EXIF:CreateDate",
}

// startExiftool starts a stay-open exiftool process, or returns an error
// when exiftool is not installed
func startExiftool() (*exiftool.Exiftool, error) {
	if _, err := exec.LookPath("exiftool"); err != nil {
		return nil, errors.Wrap(err, "exiftool not found in PATH (install it from https://exiftool.org/)")
	}
	et, err := exiftool.NewExiftool(exiftool.PrintGroupNames("0"))
	if err != nil {
		return nil, errors.Wrap(err, "start exiftool")
	}
	return et, nil
}

// exiftoolContainer covers the formats without a native writer (HEIC,
// PNG, TIFF, WebP and the rest of what exiftool supports)
type exiftoolContainer struct {
	et      *exiftool.Exiftool
	path    string
	present map[exifField]bool
	changed map[exifField]string
}

func loadExiftoolContainer(et *exiftool.Exiftool, path string) (*exiftoolContainer, error) {
	fms := et.ExtractMetadata(path)
	if len(fms) != 1 {
		return nil, errors.WithMessagef(ErrMetadataContainer, "read %s: no metadata returned", path)
	}
	if fms[0].Err != nil {
		return nil, errors.WithMessagef(ErrMetadataContainer, "read %s: %v", path, fms[0].Err)
	}

	c := &exiftoolContainer{
		et:      et,
		path:    path,
		present: make(map[exifField]bool),
		changed: make(map[exifField]string),
	}
	for f, tag := range exiftoolTags {
		_, err := fms[0].GetString(tag)
		c.present[f] = err == nil
	}
	return c, nil
}

func (c *exiftoolContainer) Has(f exifField) (bool, error) {
	return c.present[f], nil
}

func (c *exiftoolContainer) Set(f exifField, value string) error {
	c.changed[f] = value
	c.present[f] = true
	return nil
}

// Save writes the changed tags. exiftool rewrites the whole file on any
// write; with nothing changed there is no tag to hand it.
func (c *exiftoolContainer) Save() error {
	if len(c.changed) == 0 {
		return nil
	}

	fm := exiftool.EmptyFileMetadata()
	fm.File = c.path
	for f, value := range c.changed {
		fm.SetString(exiftoolTags[f], value)
	}

	fms := []exiftool.FileMetadata{fm}
	c.et.WriteMetadata(fms)
	if fms[0].Err != nil {
		return errors.WithMessagef(ErrMetadataContainer, "write %s: %v", c.path, fms[0].Err)
	}
	return nil
}
