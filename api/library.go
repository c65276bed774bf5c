package api

import (
	"fmt"
	"strings"

	"vincit.fi/jpeg-rotator/api/apitype"
)

// maxReportedFiles caps the file names listed in a failure summary.
const maxReportedFiles = 50

type RotateQuery struct {
	Id apitype.ImageId
}

type SetRotationCommand struct {
	Id       apitype.ImageId
	Rotation apitype.Rotation
}

type FailedImage struct {
	Image *apitype.ImageFile
	Err   error
}

// BatchResult is the outcome of one commit batch. Unrecoverable is set
// when the batch was halted because a photo only exists as a backup copy.
type BatchResult struct {
	Total         int
	Committed     []*apitype.ImageFile
	Failed        []*FailedImage
	Cancelled     bool
	Unrecoverable error
}

func (s *BatchResult) FailureCount() int {
	if s == nil {
		return 0
	}
	return len(s.Failed)
}

func (s *BatchResult) FailedPaths() []string {
	paths := make([]string, 0, len(s.Failed))
	for _, failed := range s.Failed {
		paths = append(paths, failed.Image.Path())
	}
	return paths
}

// Summary formats the failures for the user, listing at most 50 files.
func (s *BatchResult) Summary() string {
	if s.FailureCount() == 0 {
		return fmt.Sprintf("%d of %d image(s) rotated", len(s.Committed), s.Total)
	}
	return fmt.Sprintf("Error: %d file(s) could not be saved:\n\n%s",
		s.FailureCount(), FormatFileList(s.FailedPaths()))
}

// FormatFileList joins file names with ", " and truncates the list with
// ", ..." after maxReportedFiles entries.
func FormatFileList(files []string) string {
	if len(files) > maxReportedFiles {
		return strings.Join(files[:maxReportedFiles], ", ") + ", ..."
	}
	return strings.Join(files, ", ")
}

// ImageService runs library operations on a background worker and
// publishes their results to the event broker.
type ImageService interface {
	InitializeFromDirectory(directory string)
	RequestImages()
	RotateClockwise(*RotateQuery)
	RotateCounterClockwise(*RotateQuery)
	SetRotation(*SetRotationCommand)
	RequestCommit()
	RequestStop()
	IsBusy() bool
	Close()
}

type ImageLibrary interface {
	InitializeFromDirectory(directory string) (loaded int, skipped []string, err error)

	GetImages() []*apitype.ImageFile
	GetImageById(id apitype.ImageId) *apitype.ImageFile
	GetImageByName(fileName string) *apitype.ImageFile
	GetRotatedImages() []*apitype.ImageFile
	TotalImages() int
	RotatedImages() int

	RotateClockwise(id apitype.ImageId) (*apitype.ImageFile, error)
	RotateCounterClockwise(id apitype.ImageId) (*apitype.ImageFile, error)
	SetRotation(id apitype.ImageId, rotation apitype.Rotation) (*apitype.ImageFile, error)

	CommitRotations() *BatchResult
	RequestStop()
	Stopped() bool
}
