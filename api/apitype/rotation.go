package apitype

import (
	"fmt"
	"strings"
)

// Rotation is the correction needed to make an image appear upright.
// Values form a cyclic group of order 4 where composition is addition
// modulo 4.
type Rotation int

const (
	Upright Rotation = iota
	RotatedCW90
	Rotated180
	RotatedCCW90
)

const rotationSteps = 4

const (
	exifUpright      = 1
	exifRotated180   = 3
	exifRotatedCW90  = 6
	exifRotatedCCW90 = 8
)

func (s Rotation) IsValid() bool {
	return s >= Upright && s <= RotatedCCW90
}

func (s Rotation) String() string {
	switch s {
	case Upright:
		return "upright"
	case RotatedCW90:
		return "cw"
	case Rotated180:
		return "180"
	case RotatedCCW90:
		return "ccw"
	}
	return fmt.Sprintf("Rotation(%d)", int(s))
}

// Degrees returns the clockwise angle the rotation represents.
func (s Rotation) Degrees() int {
	return int(s.normalize()) * 90
}

func (s Rotation) normalize() Rotation {
	return ((s % rotationSteps) + rotationSteps) % rotationSteps
}

// Compose adds step to current.
func Compose(current Rotation, step Rotation) Rotation {
	return (current + step).normalize()
}

func Inverse(rotation Rotation) Rotation {
	return (rotationSteps - rotation.normalize()).normalize()
}

func RotateClockwiseStep(current Rotation) Rotation {
	return Compose(current, RotatedCW90)
}

func RotateCounterClockwiseStep(current Rotation) Rotation {
	return Compose(current, RotatedCCW90)
}

// DecodeExif maps an EXIF orientation code to a Rotation. Unknown codes,
// including the mirrored ones (2, 4, 5, 7), are treated as Upright.
func DecodeExif(code int) Rotation {
	switch code {
	case exifUpright:
		return Upright
	case exifRotated180:
		return Rotated180
	case exifRotatedCW90:
		return RotatedCW90
	case exifRotatedCCW90:
		return RotatedCCW90
	default:
		return Upright
	}
}

func EncodeExif(rotation Rotation) (int, error) {
	switch rotation {
	case Upright:
		return exifUpright, nil
	case Rotated180:
		return exifRotated180, nil
	case RotatedCW90:
		return exifRotatedCW90, nil
	case RotatedCCW90:
		return exifRotatedCCW90, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedRotation, int(rotation))
	}
}

// NetRotationToApply returns the rotation to physically apply to a file
// whose embedded tag decodes to loaded so that the tag afterwards equals
// Compose(loaded, selected). Composition is additive so this is selected
// itself; the loaded rotation must not be subtracted again.
func NetRotationToApply(loaded Rotation, selected Rotation) Rotation {
	return selected.normalize()
}

// ParseRotation parses the names printed by Rotation.String. Degree
// forms (0, 90, 270) are accepted as well.
func ParseRotation(value string) (Rotation, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "upright", "0", "none":
		return Upright, nil
	case "cw", "90", "right":
		return RotatedCW90, nil
	case "180", "flip":
		return Rotated180, nil
	case "ccw", "270", "left":
		return RotatedCCW90, nil
	}
	return Upright, fmt.Errorf("invalid rotation '%s'", value)
}
