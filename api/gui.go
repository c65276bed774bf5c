package api

import (
	"vincit.fi/jpeg-rotator/api/apitype"
)

type ErrorCommand struct {
	Message string
}

type UpdateProgressCommand struct {
	Name      string
	Current   int
	Total     int
	CanCancel bool
	Modal     bool
	Done      bool
	Failures  int
}

type SetImagesCommand struct {
	Images        []*apitype.ImageFile
	TotalImages   int
	RotatedImages int
}

type ImageRotatedCommand struct {
	Image          *apitype.ImageFile
	TargetRotation apitype.Rotation
	RotatedImages  int
}

type LoadFinishedCommand struct {
	Directory string
	Loaded    int
	Skipped   []string
	Cancelled bool
	Err       error
}

type CommitFinishedCommand struct {
	Result *BatchResult
}

// Gui is the interactive surface. All methods are called from event
// broker goroutines, never from the worker doing the file operations.
type Gui interface {
	SetImages(*SetImagesCommand)
	ImageRotated(*ImageRotatedCommand)
	UpdateProgress(*UpdateProgressCommand)
	LoadFinished(*LoadFinishedCommand)
	CommitFinished(*CommitFinishedCommand)
	ShowError(*ErrorCommand)
}
