package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Sidecar date as current exports write it, with U+202F before PM. The
// marker is not applied to the hour.
const (
	testFormatted = "Jan 5, 2023, 2:30:00\u202fPM UTC"
	testCanonical = "2023:01:05 02:30:00"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	return img
}

func encodeTestJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

// writeTestJPEG creates a small JPEG without any EXIF block
func writeTestJPEG(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, encodeTestJPEG(t), 0644))
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, testImage()))
}

func writeSidecar(t *testing.T, imagePath, formatted string) {
	t.Helper()
	body := fmt.Sprintf(`{
  "title": %q,
  "photoTakenTime": {
    "timestamp": "1672929000",
    "formatted": %q
  }
}`, filepath.Base(imagePath), formatted)
	require.NoError(t, os.WriteFile(sidecarPath(imagePath), []byte(body), 0644))
}

// presetDateTime gives a JPEG an EXIF block holding only DateTime
func presetDateTime(t *testing.T, path, value string) {
	t.Helper()
	c, err := loadJPEGContainer(path)
	require.NoError(t, err)
	require.NoError(t, c.Set(fieldDateTime, value))
	require.NoError(t, c.Save())
}

func readTimes(t *testing.T, path string) *CaptureTimes {
	t.Helper()
	times, err := ReadCaptureTimes(path)
	require.NoError(t, err)
	return times
}

// newTestPatcher never starts exiftool, so only JPEGs are writable
func newTestPatcher() *Patcher {
	return &Patcher{log: zerolog.Nop()}
}

func newTestProcessor(folder string) *Processor {
	return &Processor{
		config:  &Config{Folder: folder},
		log:     zerolog.Nop(),
		patcher: newTestPatcher(),
		stats:   &ProcessStats{},
		out:     io.Discard,
	}
}

// TIFF field types used by the camera fixtures
const (
	tiffASCII     = 2
	tiffShort     = 3
	tiffLong      = 4
	tiffUndefined = 7
)

const cameraTime = "2006:08:03 16:29:38"

type tiffEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

func asciiEntry(tag uint16, s string) tiffEntry {
	v := append([]byte(s), 0)
	return tiffEntry{tag: tag, typ: tiffASCII, count: uint32(len(v)), value: v}
}

func longEntry(tag uint16, n uint32) tiffEntry {
	v := make([]byte, 4)
	binary.LittleEndian.PutUint32(v, n)
	return tiffEntry{tag: tag, typ: tiffLong, count: 1, value: v}
}

func ifdSize(entries []tiffEntry) uint32 {
	return uint32(2 + 12*len(entries) + 4)
}

// valueOffset is where layoutIFD puts the value of entries[i] when it does
// not fit in the entry
func valueOffset(off uint32, entries []tiffEntry, i int) uint32 {
	pos := off + ifdSize(entries)
	for _, e := range entries[:i] {
		if n := uint32(len(e.value)); n > 4 {
			pos += n + n%2
		}
	}
	return pos
}

// layoutIFD encodes a little-endian IFD starting at TIFF offset off,
// followed by its out-of-line values. The next-IFD link is zero.
func layoutIFD(off uint32, entries []tiffEntry) []byte {
	le := binary.LittleEndian
	table := make([]byte, ifdSize(entries))
	le.PutUint16(table, uint16(len(entries)))

	var data []byte
	for i, e := range entries {
		p := 2 + 12*i
		le.PutUint16(table[p:], e.tag)
		le.PutUint16(table[p+2:], e.typ)
		le.PutUint32(table[p+4:], e.count)
		if len(e.value) <= 4 {
			copy(table[p+8:p+12], e.value)
			continue
		}
		le.PutUint32(table[p+8:], valueOffset(off, entries, i))
		data = append(data, e.value...)
		if len(e.value)%2 == 1 {
			data = append(data, 0)
		}
	}
	return append(table, data...)
}

type cameraOptions struct {
	digitized       bool // write DateTimeDigitized
	makerNote       bool // add a Canon maker note
	brokenMakerNote bool // point the maker note's value past the end
}

// cameraEXIF lays out a TIFF block the way a Canon body writes it: IFD0
// with Make, Model and DateTime pointing at an Exif IFD with the capture
// times and, optionally, a maker note. Canon maker notes are a bare IFD
// whose value offsets count from the TIFF header, so moving one without
// rewriting it leaves those offsets dangling.
func cameraEXIF(o cameraOptions) []byte {
	exifEntries := []tiffEntry{asciiEntry(0x9003, cameraTime)}
	if o.digitized {
		exifEntries = append(exifEntries, asciiEntry(0x9004, cameraTime))
	}
	if o.makerNote {
		exifEntries = append(exifEntries, tiffEntry{tag: makerNoteTagID, typ: tiffUndefined})
	}

	ifd0 := []tiffEntry{
		asciiEntry(0x010f, "Canon"),
		asciiEntry(0x0110, "Canon PowerShot SD600"),
		asciiEntry(0x0132, cameraTime),
		longEntry(0x8769, 0),
	}
	exifOff := 8 + uint32(len(layoutIFD(8, ifd0)))
	ifd0[3] = longEntry(0x8769, exifOff)

	if o.makerNote {
		i := len(exifEntries) - 1
		settings := tiffEntry{tag: 0x0001, typ: tiffShort, count: 4, value: []byte{1, 0, 2, 0, 3, 0, 4, 0}}
		note := layoutIFD(valueOffset(exifOff, exifEntries, i), []tiffEntry{settings})
		if o.brokenMakerNote {
			binary.LittleEndian.PutUint32(note[10:], 0x00ffff00)
		}
		exifEntries[i].count = uint32(len(note))
		exifEntries[i].value = note
	}

	out := []byte{'I', 'I', 42, 0, 8, 0, 0, 0}
	out = append(out, layoutIFD(8, ifd0)...)
	return append(out, layoutIFD(exifOff, exifEntries)...)
}

// writeCameraJPEG writes a JPEG whose APP1 segment holds cameraEXIF and
// returns the file content
func writeCameraJPEG(t *testing.T, path string, o cameraOptions) []byte {
	t.Helper()
	payload := append([]byte("Exif\x00\x00"), cameraEXIF(o)...)

	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xd8, 0xff, 0xe1})
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2)))
	buf.Write(payload)
	buf.Write(encodeTestJPEG(t)[2:]) // drop the encoder's SOI

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return buf.Bytes()
}
