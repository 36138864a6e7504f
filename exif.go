package main

import (
	"bytes"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/rwcarlsen/goexif/tiff"
)

func init() {
	// Register maker note handlers
	exif.RegisterParsers(mknote.All...)
}

// CaptureTimes holds the EXIF timestamps of a photo. A Has flag is set
// when the tag exists, even with an empty value.
type CaptureTimes struct {
	HasExif              bool
	HasDateTime          bool
	DateTime             string
	HasDateTimeDigitized bool
	DateTimeDigitized    string
}

// Complete reports whether both timestamps the fixer writes are present
func (c *CaptureTimes) Complete() bool {
	return c.HasDateTime && c.HasDateTimeDigitized
}

// ReadCaptureTimes reads the EXIF timestamps from a photo file
func ReadCaptureTimes(filepath string) (*CaptureTimes, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer f.Close()

	// A failing sub-IFD or maker note parser still leaves the fields
	// loaded so far in x; only a nil x means there is no usable EXIF.
	x, _ := exif.Decode(f)
	if x == nil {
		// Many photos might not have EXIF data, which is okay
		return &CaptureTimes{}, nil
	}

	times := &CaptureTimes{HasExif: true}

	if tag, err := x.Get(exif.DateTime); err == nil {
		times.HasDateTime = true
		times.DateTime = tagString(tag)
	}

	if tag, err := x.Get(exif.DateTimeDigitized); err == nil {
		times.HasDateTimeDigitized = true
		times.DateTimeDigitized = tagString(tag)
	}

	return times, nil
}

// exifDecodesCleanly reports whether goexif, maker note parsers included,
// reads the EXIF of an encoded image without any error
func exifDecodesCleanly(data []byte) bool {
	x, err := exif.Decode(bytes.NewReader(data))
	return x != nil && err == nil
}

// tagString returns an ASCII tag value without its NUL terminator
func tagString(t *tiff.Tag) string {
	s, err := t.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimRight(s, "\x00")
}
