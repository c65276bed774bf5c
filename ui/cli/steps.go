package cli

import (
	"fmt"
	"strings"

	"vincit.fi/jpeg-rotator/api/apitype"
)

// RotationSteps are the rotation steps selected for one file, in the
// order they are applied.
type RotationSteps struct {
	FileName string
	Steps    []apitype.Rotation
}

// Rotation is the target rotation the steps compose to.
func (s *RotationSteps) Rotation() apitype.Rotation {
	rotation := apitype.Upright
	for _, step := range s.Steps {
		rotation = apitype.Compose(rotation, step)
	}
	return rotation
}

// ParseRotationSteps parses arguments of form FILE=STEP[,STEP...] where
// each STEP is a rotation name such as cw, ccw, 180 or upright.
func ParseRotationSteps(args []string) ([]*RotationSteps, error) {
	var parsed []*RotationSteps
	seen := map[string]bool{}
	for _, arg := range args {
		separator := strings.LastIndex(arg, "=")
		if separator <= 0 || separator == len(arg)-1 {
			return nil, fmt.Errorf("invalid rotation '%s', expected FILE=STEPS", arg)
		}
		fileName := arg[:separator]
		if seen[fileName] {
			return nil, fmt.Errorf("rotation for '%s' given more than once", fileName)
		}
		seen[fileName] = true

		rotationSteps := &RotationSteps{FileName: fileName}
		for _, value := range strings.Split(arg[separator+1:], ",") {
			step, err := apitype.ParseRotation(value)
			if err != nil {
				return nil, fmt.Errorf("invalid rotation for '%s': %w", fileName, err)
			}
			rotationSteps.Steps = append(rotationSteps.Steps, step)
		}
		parsed = append(parsed, rotationSteps)
	}
	return parsed, nil
}
