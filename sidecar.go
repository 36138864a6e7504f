package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Sidecar keys are matched exactly, the way the export writes them.
const (
	keyPhotoTakenTime = "photoTakenTime"
	keyFormatted      = "formatted"
)

// sidecarPath is where the export puts the JSON for an image
func sidecarPath(imagePath string) string {
	return imagePath + ".json"
}

// readTakenTime decodes a sidecar and returns its photoTakenTime in EXIF
// form. The whole file must be one JSON value; title and the epoch
// timestamp are not looked at.
func readTakenTime(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "read sidecar")
	}

	// json.Unmarshal rejects anything but whitespace after the value.
	var meta map[string]json.RawMessage
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", errors.WithMessagef(ErrSidecarFormat, "%s: %v", path, err)
	}

	var taken map[string]json.RawMessage
	if err := decodeKey(meta, keyPhotoTakenTime, &taken); err != nil {
		return "", errors.WithMessagef(ErrSidecarFormat, "%s: %v", path, err)
	}

	var formatted *string
	if err := decodeKey(taken, keyFormatted, &formatted); err != nil {
		return "", errors.WithMessagef(ErrSidecarFormat, "%s: in %s: %v", path, keyPhotoTakenTime, err)
	}
	if formatted == nil {
		return "", errors.WithMessagef(ErrSidecarFormat, "%s: %s.%s is null", path, keyPhotoTakenTime, keyFormatted)
	}

	return CanonicalTakenTime(*formatted)
}

// decodeKey unmarshals obj[key] into v. A null object or a missing key is
// an error; a null value leaves v at its zero value.
func decodeKey(obj map[string]json.RawMessage, key string, v any) error {
	raw, ok := obj[key]
	if !ok {
		return errors.Errorf("no %s key", key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, key)
	}
	return nil
}
