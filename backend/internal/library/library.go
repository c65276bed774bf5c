package library

import (
	"bufio"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"vincit.fi/jpeg-rotator/api"
	"vincit.fi/jpeg-rotator/api/apitype"
	"vincit.fi/jpeg-rotator/common/logger"
)

const (
	loadProcessName   = "Loading"
	commitProcessName = "Rotating"
)

// Library keeps the image records of one directory and commits their
// selected rotations. Counts are always derived from the records.
type Library struct {
	fs               afero.Fs
	codec            api.ImageCodec
	committer        api.Committer
	progressReporter api.ProgressReporter
	thumbnailSize    apitype.Size

	images        []*apitype.ImageFile
	imagesById    map[apitype.ImageId]*apitype.ImageFile
	stopRequested atomic.Bool
	mux           sync.RWMutex

	api.ImageLibrary
}

func NewImageLibrary(fs afero.Fs, codec api.ImageCodec, committer api.Committer, thumbnailSize apitype.Size, progressReporter api.ProgressReporter) *Library {
	if progressReporter == nil {
		progressReporter = api.NoopProgressReporter{}
	}
	return &Library{
		fs:               fs,
		codec:            codec,
		committer:        committer,
		progressReporter: progressReporter,
		thumbnailSize:    thumbnailSize,
		imagesById:       map[apitype.ImageId]*apitype.ImageFile{},
	}
}

// InitializeFromDirectory replaces the records with the images in
// directory. Files that cannot be decoded are skipped and returned by
// name. A stop request keeps the images loaded so far.
func (s *Library) InitializeFromDirectory(directory string) (int, []string, error) {
	s.stopRequested.Store(false)
	startTime := time.Now()

	imageFiles, err := apitype.LoadImageFiles(s.fs, directory)
	if err != nil {
		return 0, nil, err
	}

	total := len(imageFiles)
	logger.Info.Printf("Loading %d images from '%s'", total, directory)
	var loaded []*apitype.ImageFile
	var skipped []string
	for i, imageFile := range imageFiles {
		if s.Stopped() {
			logger.Info.Printf("Loading stopped after %d of %d images", i, total)
			break
		}
		s.progressReporter.Update(loadProcessName, i, total, true, false)

		if err := s.loadImage(imageFile); err != nil {
			logger.Warn.Printf("Skipping '%s': %s", imageFile.Path(), err)
			skipped = append(skipped, imageFile.FileName())
			continue
		}
		loaded = append(loaded, imageFile)
	}
	s.progressReporter.Finished(loadProcessName, total, len(skipped))

	s.setImages(loaded)
	logger.Info.Printf("%d images loaded in %s (%d skipped)", len(loaded), time.Since(startTime).String(), len(skipped))
	return len(loaded), skipped, nil
}

func (s *Library) loadImage(imageFile *apitype.ImageFile) error {
	file, err := s.fs.Open(imageFile.Path())
	if err != nil {
		return err
	}
	defer file.Close()

	thumbnail, exifData, err := s.codec.DecodeScaled(bufio.NewReader(file), s.thumbnailSize)
	if err != nil {
		return err
	}
	if exifData == nil {
		exifData = apitype.NewInvalidExifData()
	}
	imageFile.SetThumbnail(thumbnail)
	imageFile.SetLoadedRotation(exifData.Rotation())
	logger.Debug.Printf("Loaded '%s' (orientation %d)", imageFile.FileName(), exifData.Orientation())
	return nil
}

func (s *Library) setImages(imageFiles []*apitype.ImageFile) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.images = imageFiles
	s.imagesById = make(map[apitype.ImageId]*apitype.ImageFile, len(imageFiles))
	for _, imageFile := range imageFiles {
		s.imagesById[imageFile.Id()] = imageFile
	}
}

func (s *Library) GetImages() []*apitype.ImageFile {
	s.mux.RLock()
	defer s.mux.RUnlock()
	images := make([]*apitype.ImageFile, len(s.images))
	copy(images, s.images)
	return images
}

func (s *Library) GetImageById(id apitype.ImageId) *apitype.ImageFile {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if imageFile, ok := s.imagesById[id]; ok {
		return imageFile
	}
	return apitype.GetEmptyImageFile()
}

func (s *Library) GetImageByName(fileName string) *apitype.ImageFile {
	s.mux.RLock()
	defer s.mux.RUnlock()
	for _, imageFile := range s.images {
		if imageFile.FileName() == fileName {
			return imageFile
		}
	}
	return apitype.GetEmptyImageFile()
}

// GetRotatedImages returns the images with a pending rotation, in load
// order.
func (s *Library) GetRotatedImages() []*apitype.ImageFile {
	var rotated []*apitype.ImageFile
	for _, imageFile := range s.GetImages() {
		if imageFile.IsRotated() {
			rotated = append(rotated, imageFile)
		}
	}
	return rotated
}

func (s *Library) TotalImages() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return len(s.images)
}

func (s *Library) RotatedImages() int {
	return len(s.GetRotatedImages())
}

func (s *Library) RotateClockwise(id apitype.ImageId) (*apitype.ImageFile, error) {
	return s.updateRotation(id, func(imageFile *apitype.ImageFile) {
		imageFile.RotateClockwise()
	})
}

func (s *Library) RotateCounterClockwise(id apitype.ImageId) (*apitype.ImageFile, error) {
	return s.updateRotation(id, func(imageFile *apitype.ImageFile) {
		imageFile.RotateCounterClockwise()
	})
}

func (s *Library) SetRotation(id apitype.ImageId, rotation apitype.Rotation) (*apitype.ImageFile, error) {
	if !rotation.IsValid() {
		return nil, fmt.Errorf("%w: %d", apitype.ErrUnsupportedRotation, int(rotation))
	}
	return s.updateRotation(id, func(imageFile *apitype.ImageFile) {
		imageFile.SetTargetRotation(rotation)
	})
}

func (s *Library) updateRotation(id apitype.ImageId, update func(*apitype.ImageFile)) (*apitype.ImageFile, error) {
	imageFile := s.GetImageById(id)
	if !imageFile.IsValid() {
		return nil, fmt.Errorf("image '%s' not found", id)
	}
	update(imageFile)
	logger.Debug.Printf("Target rotation of '%s' is now '%s'", imageFile.FileName(), imageFile.TargetRotation())
	return imageFile, nil
}

// CommitRotations commits the pending rotations one file at a time. A
// stop request is honored between files. Failures are collected except
// for an unrecoverable write which halts the batch.
func (s *Library) CommitRotations() *api.BatchResult {
	s.stopRequested.Store(false)
	startTime := time.Now()

	rotated := s.GetRotatedImages()
	total := len(rotated)
	result := &api.BatchResult{Total: total}
	logger.Info.Printf("Committing rotations of %d images", total)

	for i, imageFile := range rotated {
		if s.Stopped() {
			logger.Info.Printf("Commit stopped after %d of %d images", i, total)
			result.Cancelled = true
			break
		}
		s.progressReporter.Update(commitProcessName, i, total, true, true)

		rotation := apitype.NetRotationToApply(imageFile.LoadedRotation(), imageFile.TargetRotation())
		if err := s.committer.Commit(imageFile.Path(), rotation); err != nil {
			result.Failed = append(result.Failed, &api.FailedImage{Image: imageFile, Err: err})
			if apitype.IsUnrecoverable(err) {
				logger.Error.Printf("Halting commit: %s", err)
				result.Unrecoverable = err
				break
			}
			logger.Warn.Printf("Could not commit '%s': %s", imageFile.Path(), err)
			continue
		}

		imageFile.MarkCommitted(s.codec.Rotate)
		result.Committed = append(result.Committed, imageFile)
	}
	s.progressReporter.Finished(commitProcessName, total, result.FailureCount())

	logger.Info.Printf("%d of %d rotations committed in %s (%d failed)",
		len(result.Committed), total, time.Since(startTime).String(), result.FailureCount())
	return result
}

// RequestStop asks a running load or commit to stop before its next file.
func (s *Library) RequestStop() {
	logger.Info.Print("Stop requested")
	s.stopRequested.Store(true)
}

func (s *Library) Stopped() bool {
	return s.stopRequested.Load()
}
