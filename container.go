package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	"github.com/pkg/errors"
)

// exifField names one of the two timestamps the fixer manages
type exifField int

const (
	fieldDateTime          exifField = iota // IFD0 DateTime
	fieldDateTimeDigitized                  // Exif sub-IFD DateTimeDigitized
)

var patchedFields = []exifField{fieldDateTime, fieldDateTimeDigitized}

func (f exifField) String() string {
	switch f {
	case fieldDateTime:
		return "DateTime"
	case fieldDateTimeDigitized:
		return "DateTimeDigitized"
	}
	return "unknown"
}

func (f exifField) tagID() uint16 {
	if f == fieldDateTime {
		return 0x0132
	}
	return 0x9004
}

// metadataContainer is the EXIF block of one image, loaded in full.
// Changes stay in memory until Save rewrites the whole block.
type metadataContainer interface {
	// Has reports whether the field is present, whatever its value. An
	// error means the group holding the field could not be read.
	Has(f exifField) (bool, error)
	Set(f exifField, value string) error
	Save() error
}

// isJPEG checks if a file is a JPEG based on extension
func isJPEG(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".jpe":
		return true
	}
	return false
}

// makerNoteTagID is the Exif sub-IFD tag holding the vendor maker note
const makerNoteTagID = 0x927c

// jpegContainer edits EXIF natively by rebuilding the APP1 segment.
//
// go-exif re-encodes the maker note as an opaque blob at a new offset.
// Vendor notes that address values from the TIFF header (Canon, Olympus,
// Panasonic, ...) break when moved, so a JPEG carrying one is never
// rebuilt here.
type jpegContainer struct {
	path      string
	sl        *jpegstructure.SegmentList
	rootIb    *exif.IfdBuilder
	cleanExif bool // goexif read the original EXIF without any error
	makerNote bool
	changed   bool
}

func loadJPEGContainer(path string) (*jpegContainer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessagef(ErrMetadataContainer, "read %s: %v", path, err)
	}

	intfc, err := jpegstructure.NewJpegMediaParser().ParseBytes(data)
	if err != nil {
		return nil, errors.WithMessagef(ErrMetadataContainer, "parse JPEG %s: %v", path, err)
	}
	sl := intfc.(*jpegstructure.SegmentList)

	// A JPEG without EXIF yields an empty builder.
	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		return nil, errors.WithMessagef(ErrMetadataContainer, "read EXIF of %s: %v", path, err)
	}

	c := &jpegContainer{
		path:      path,
		sl:        sl,
		rootIb:    rootIb,
		cleanExif: exifDecodesCleanly(data),
	}
	if c.makerNote, err = c.hasMakerNote(); err != nil {
		return nil, errors.WithMessagef(ErrMetadataContainer, "read EXIF of %s: %v", path, err)
	}
	return c, nil
}

// exifIfd returns the Exif sub-IFD builder. With create unset, a missing
// sub-IFD is reported as nil.
func (c *jpegContainer) exifIfd(create bool) (*exif.IfdBuilder, error) {
	if !create {
		found, err := c.rootIb.FindN(exifcommon.IfdExifStandardIfdIdentity.TagId(), 1)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, nil
		}
	}
	return exif.GetOrCreateIbFromRootIb(c.rootIb, "IFD/Exif")
}

// ifdFor returns the builder holding f
func (c *jpegContainer) ifdFor(f exifField, create bool) (*exif.IfdBuilder, error) {
	if f == fieldDateTime {
		return c.rootIb, nil
	}
	return c.exifIfd(create)
}

func (c *jpegContainer) hasMakerNote() (bool, error) {
	ib, err := c.exifIfd(false)
	if err != nil || ib == nil {
		return false, err
	}
	found, err := ib.FindN(makerNoteTagID, 1)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

func (c *jpegContainer) Has(f exifField) (bool, error) {
	ib, err := c.ifdFor(f, false)
	if err != nil {
		return false, errors.Wrapf(err, "locate %s group", f)
	}
	if ib == nil {
		return false, nil
	}
	found, err := ib.FindN(f.tagID(), 1)
	if err != nil {
		return false, errors.Wrapf(err, "find %s", f)
	}
	return len(found) > 0, nil
}

func (c *jpegContainer) Set(f exifField, value string) error {
	ib, err := c.ifdFor(f, true)
	if err != nil {
		return errors.Wrapf(err, "create %s group", f)
	}
	if err := ib.SetStandardWithName(f.String(), value); err != nil {
		return errors.Wrapf(err, "set %s", f)
	}
	c.changed = true
	return nil
}

// Save rewrites the whole EXIF block. The encoded image is checked with
// goexif before it replaces the original: EXIF that decoded cleanly must
// still decode cleanly.
func (c *jpegContainer) Save() error {
	if c.makerNote {
		if !c.changed {
			// Nothing to write, and rebuilding would move the maker note.
			return nil
		}
		return errors.WithMessagef(ErrMetadataContainer, "%s has a maker note, exiftool is needed to update it", c.path)
	}

	if err := c.sl.SetExif(c.rootIb); err != nil {
		return errors.WithMessagef(ErrMetadataContainer, "encode EXIF for %s: %v", c.path, err)
	}
	var buf bytes.Buffer
	if err := c.sl.Write(&buf); err != nil {
		return errors.WithMessagef(ErrMetadataContainer, "encode %s: %v", c.path, err)
	}
	if c.cleanExif && !exifDecodesCleanly(buf.Bytes()) {
		return errors.WithMessagef(ErrMetadataContainer, "rewritten EXIF of %s no longer decodes, original kept", c.path)
	}

	err := replaceFile(c.path, func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	})
	if err != nil {
		return errors.WithMessagef(ErrMetadataContainer, "write %s: %v", c.path, err)
	}
	return nil
}

// replaceFile rewrites path through a temporary sibling and a rename, so
// the original is either fully replaced or left as it was
func replaceFile(path string, write func(io.Writer) error) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
