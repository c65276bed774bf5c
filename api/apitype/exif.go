package apitype

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"vincit.fi/jpeg-rotator/common/logger"
)

// ExifData holds the raw TIFF block of an image's EXIF segment and the
// orientation read from it. Raw is owned by ExifData and is modified in
// place when the orientation changes.
type ExifData struct {
	orientation    uint8
	hasOrientation bool
	raw            []byte
	decoded        *exif.Exif
}

const exifUnchangedOrientation = 1
const exifValueMarker = 0xFF

// Tag (2 bytes), type (2 bytes), count (4 bytes), value (2 bytes): 0xFF is the marker for value
// Intel byte order
var orientationIntelPattern = []byte{0x12, 0x01, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00, exifValueMarker, 0x00}

const orientationIntelOffset = 8 // Offset for the value from the tag

// Motorola byte order
var orientationMotorolaPattern = []byte{0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, exifValueMarker}

const orientationMotorolaOffset = 9 // Offset for the value from the tag

// NewInvalidExifData returns data for an image without an EXIF segment.
func NewInvalidExifData() *ExifData {
	return &ExifData{
		orientation:    exifUnchangedOrientation,
		hasOrientation: false,
	}
}

// LoadExifData decodes the EXIF segment from a JPEG or TIFF stream. When
// the stream has no usable EXIF data the returned value is still usable
// (orientation 1, no raw block) and the error tells why.
func LoadExifData(reader io.Reader) (*ExifData, error) {
	decodedExif, err := exif.Decode(reader)
	if decodedExif == nil || (err != nil && exif.IsCriticalError(err)) {
		return NewInvalidExifData(), err
	}
	if err != nil {
		logger.Debug.Printf("Non-critical error while decoding Exif data: %s", err)
	}

	data := &ExifData{
		orientation: exifUnchangedOrientation,
		raw:         append([]byte{}, decodedExif.Raw...),
		decoded:     decodedExif,
	}

	if orientation, err := GetInt(decodedExif, exif.Orientation); err != nil {
		logger.Debug.Print("Could not resolve orientation: ", err)
	} else if orientation < 0 || orientation > 0xFF {
		logger.Warn.Printf("Orientation value %d is out of range", orientation)
	} else {
		data.orientation = uint8(orientation)
		data.hasOrientation = true
	}
	return data, nil
}

func GetInt(decodedExif *exif.Exif, tagName exif.FieldName) (int, error) {
	if tag, err := decodedExif.Get(tagName); err != nil {
		return 0, err
	} else {
		return tag.Int(0)
	}
}

// Orientation returns the embedded EXIF orientation code, 1 when absent.
func (s *ExifData) Orientation() int {
	return int(s.orientation)
}

func (s *ExifData) HasOrientation() bool {
	return s.hasOrientation
}

func (s *ExifData) Rotation() Rotation {
	return DecodeExif(s.Orientation())
}

func (s *ExifData) HasRawExifData() bool {
	return len(s.raw) > 0
}

func (s *ExifData) RawExifData() []byte {
	return s.raw
}

func (s *ExifData) RawExifDataLength() int {
	return len(s.raw)
}

func (s *ExifData) Get(name exif.FieldName) *tiff.Tag {
	if s.decoded == nil {
		return nil
	}
	if tag, err := s.decoded.Get(name); err != nil {
		return nil
	} else {
		return tag
	}
}

// SetOrientation writes a new orientation code. An existing tag is patched
// in place so the rest of the block stays byte identical; when there is no
// tag (or no EXIF at all) IFD0 is rebuilt with the tag added.
func (s *ExifData) SetOrientation(code int) error {
	if code < 1 || code > 8 {
		return fmt.Errorf("invalid orientation code %d", code)
	}

	if s.hasOrientation && s.HasRawExifData() {
		if orientationByteIndex, err := findOrientationByteIndex(s.raw, s.orientation); err == nil {
			s.raw[orientationByteIndex] = uint8(code)
			s.orientation = uint8(code)
			return nil
		}
		logger.Debug.Printf("Orientation %d not found in raw Exif data, rebuilding IFD0", s.orientation)
	}

	raw, err := rebuildWithOrientation(s.raw, code)
	if err != nil {
		return fmt.Errorf("could not write orientation %d: %w", code, err)
	}
	s.raw = raw
	s.orientation = uint8(code)
	s.hasOrientation = true
	s.decoded = nil
	return nil
}

// Finds the index for orientation with the given value
func findOrientationByteIndex(exifData []byte, value uint8) (int, error) {
	buffer := copyAndSetValue(orientationIntelPattern, value)
	if result, err := find(exifData, buffer); err == nil {
		return result + orientationIntelOffset, nil
	} else {
		buffer = copyAndSetValue(orientationMotorolaPattern, value)
		if result, err := find(exifData, buffer); err == nil {
			return result + orientationMotorolaOffset, nil
		}
	}
	return 0, errors.New("not found")
}

func copyAndSetValue(buf []byte, value uint8) []byte {
	byteArray := make([]byte, len(buf))
	copy(byteArray, buf)
	byteArray[bytes.IndexByte(byteArray, exifValueMarker)] = value
	return byteArray
}

func find(exifData []byte, s []byte) (int, error) {
	index := bytes.Index(exifData, s)
	if index < 0 {
		return 0, errors.New("not found")
	} else {
		return index, nil
	}
}
