package main

import (
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ExifTimestampLayout is the EXIF "YYYY:MM:DD HH:MM:SS" representation
const ExifTimestampLayout = "2006:01:02 15:04:05"

// takenTimeLayout is one accepted sidecar "formatted" layout
type takenTimeLayout struct {
	layout string
	// The value carries an AM/PM marker between the time and the zone. It
	// must be present but is not applied: the hour is always read on the
	// 24-hour clock, so "2:30:00 PM" is 02:30:00.
	meridiem bool
}

// Layouts are tried in order. The first one is what current exports write
// ("Jan 5, 2023, 2:30:00 PM UTC"), the second is the day-first variant
// seen in older and non-US exports.
var takenTimeLayouts = []takenTimeLayout{
	{layout: "Jan 2, 2006, 15:04:05 MST", meridiem: true},
	{layout: "2 Jan 2006, 15:04:05 MST"},
}

var meridiemMarker = regexp.MustCompile(`^(.*:\d\d) (?i:AM|PM) (\S+)$`)

// stripMeridiem drops the AM/PM marker in front of the zone
func stripMeridiem(s string) (string, error) {
	m := meridiemMarker.FindStringSubmatch(s)
	if m == nil {
		return "", errors.New("no AM/PM marker before the zone")
	}
	return m[1] + " " + m[2], nil
}

func (l takenTimeLayout) parse(value string) (time.Time, error) {
	if l.meridiem {
		var err error
		if value, err = stripMeridiem(value); err != nil {
			return time.Time{}, err
		}
	}
	return time.Parse(l.layout, value)
}

// Exports write a U+202F NARROW NO-BREAK SPACE before the AM/PM marker.
// Read as Windows-1252 it turns into "â€¯", which is how it shows up in
// sidecars that went through a misconfigured tool.
var spaceNormalizer = strings.NewReplacer(
	"\u00e2\u20ac\u00af", " ",
	"\u202f", " ",
)

// NormalizeSpaces replaces every narrow no-break space, garbled or not,
// with an ordinary space
func NormalizeSpaces(s string) string {
	return spaceNormalizer.Replace(s)
}

// ParseTakenTime normalizes and parses a sidecar photoTakenTime.formatted
// value. The zone abbreviation must be present but is not applied: the
// wall clock as written is what ends up in the image.
func ParseTakenTime(formatted string) (time.Time, error) {
	formatted = NormalizeSpaces(formatted)
	var firstErr error
	for _, l := range takenTimeLayouts {
		t, err := l.parse(formatted)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, errors.WithMessagef(ErrTimestampFormat, "%q (%v)", formatted, firstErr)
}

// FormatExifTimestamp renders t's wall clock in EXIF form
func FormatExifTimestamp(t time.Time) string {
	return t.Format(ExifTimestampLayout)
}

// CanonicalTakenTime turns a sidecar date string into its EXIF form
func CanonicalTakenTime(formatted string) (string, error) {
	t, err := ParseTakenTime(formatted)
	if err != nil {
		return "", err
	}
	return FormatExifTimestamp(t), nil
}
