package main

import (
	"github.com/barasher/go-exiftool"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Patcher writes capture times into image metadata. JPEGs are edited
// natively; every other format goes through exiftool when it is installed.
type Patcher struct {
	log zerolog.Logger
	et  *exiftool.Exiftool
}

// NewPatcher creates a patcher, starting exiftool if it is available
func NewPatcher(logger zerolog.Logger) *Patcher {
	p := &Patcher{log: logger}

	et, err := startExiftool()
	if err != nil {
		logger.Warn().Err(err).Msg("only JPEG metadata can be updated")
		return p
	}
	p.et = et
	return p
}

// Close stops the exiftool process, if any
func (p *Patcher) Close() error {
	if p.et == nil {
		return nil
	}
	err := p.et.Close()
	p.et = nil
	return err
}

func (p *Patcher) load(imagePath string) (metadataContainer, error) {
	if isJPEG(imagePath) {
		c, err := loadJPEGContainer(imagePath)
		if err != nil {
			return nil, err
		}
		if c.makerNote && p.et != nil {
			// exiftool fixes the offsets inside a maker note it moves.
			p.log.Debug().Str("path", imagePath).Msg("maker note present, using exiftool")
			return loadExiftoolContainer(p.et, imagePath)
		}
		return c, nil
	}
	if p.et == nil {
		return nil, errors.WithMessagef(ErrMetadataContainer, "%s: no writer for this format without exiftool", imagePath)
	}
	return loadExiftoolContainer(p.et, imagePath)
}

// Patch sets DateTime and DateTimeDigitized to newDateTime where they are
// absent, then writes the container back. A present field is never
// replaced, whatever its value. With allowEdit unset nothing is set and
// the container is only rewritten as is; exiftool-backed files and JPEGs
// with a maker note are not rewritten when nothing changed.
//
// The returned error wraps ErrMetadataContainer; modified is false then
// and the image is untouched.
func (p *Patcher) Patch(imagePath, newDateTime string, allowEdit bool) (modified bool, err error) {
	c, err := p.load(imagePath)
	if err != nil {
		return false, err
	}
	return p.patchContainer(c, imagePath, newDateTime, allowEdit)
}

func (p *Patcher) patchContainer(c metadataContainer, imagePath, newDateTime string, allowEdit bool) (modified bool, err error) {
	for _, field := range patchedFields {
		present, err := c.Has(field)
		if err != nil {
			p.log.Warn().Err(err).Str("path", imagePath).Stringer("field", field).Msg("field not available")
			continue
		}
		if present || !allowEdit {
			continue
		}
		if err := c.Set(field, newDateTime); err != nil {
			p.log.Warn().Err(err).Str("path", imagePath).Stringer("field", field).Msg("field not writable")
			continue
		}
		modified = true
	}

	if err := c.Save(); err != nil {
		return false, err
	}
	return modified, nil
}
