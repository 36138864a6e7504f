package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ScanReport lists the images of a folder that lack either timestamp
type ScanReport struct {
	TotalImages      int
	MissingDateTime  int
	MissingDigitized int
	Incomplete       []string // file names missing at least one timestamp
}

// isImageFile checks if a file is an image based on extension
func isImageFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	imageExts := []string{".jpg", ".jpeg", ".jpe", ".png", ".gif", ".bmp", ".tiff", ".tif", ".heic", ".heif", ".webp"}
	for _, imgExt := range imageExts {
		if ext == imgExt {
			return true
		}
	}
	return false
}

// ScanFolder inspects the images directly inside folder without changing
// anything
func ScanFolder(folder string, logger zerolog.Logger) (*ScanReport, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, errors.WithMessagef(ErrDirectoryList, "%s: %v", folder, err)
	}

	report := &ScanReport{}
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		report.TotalImages++

		times, err := ReadCaptureTimes(filepath.Join(folder, entry.Name()))
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("could not read EXIF data")
			times = &CaptureTimes{}
		}

		if !times.HasDateTime {
			report.MissingDateTime++
		}
		if !times.HasDateTimeDigitized {
			report.MissingDigitized++
		}
		if !times.Complete() {
			report.Incomplete = append(report.Incomplete, entry.Name())
			logger.Debug().Str("file", entry.Name()).Bool("exif", times.HasExif).
				Bool("DateTime", times.HasDateTime).Bool("DateTimeDigitized", times.HasDateTimeDigitized).
				Msg("missing timestamp")
		}
	}
	return report, nil
}

// Print writes the report in the same shape as the processing statistics
func (r *ScanReport) Print(out io.Writer) {
	for _, name := range r.Incomplete {
		fmt.Fprintln(out, name)
	}
	fmt.Fprintln(out, "\n=== Scan Results ===")
	fmt.Fprintf(out, "Images scanned:            %d\n", r.TotalImages)
	fmt.Fprintf(out, "Missing DateTime:          %d\n", r.MissingDateTime)
	fmt.Fprintf(out, "Missing DateTimeDigitized: %d\n", r.MissingDigitized)
	fmt.Fprintf(out, "Incomplete images:         %d\n", len(r.Incomplete))
	if r.TotalImages > 0 {
		fmt.Fprintf(out, "Percentage incomplete:     %.1f%%\n", float64(len(r.Incomplete))/float64(r.TotalImages)*100)
	}
	fmt.Fprintln(out, "====================")
}
