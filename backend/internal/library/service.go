package library

import (
	"fmt"
	"sync"
	"sync/atomic"

	"vincit.fi/jpeg-rotator/api"
	"vincit.fi/jpeg-rotator/api/apitype"
	"vincit.fi/jpeg-rotator/common/logger"
)

// Service runs library operations and publishes the results. Loading and
// committing run on a background goroutine, one operation at a time.
type Service struct {
	sender  api.Sender
	library api.ImageLibrary
	busy    atomic.Bool
	wg      sync.WaitGroup

	api.ImageService
}

func NewImageService(sender api.Sender, library api.ImageLibrary) *Service {
	return &Service{
		sender:  sender,
		library: library,
	}
}

func (s *Service) InitializeFromDirectory(directory string) {
	s.runInBackground("loading", func() func() {
		loaded, skipped, err := s.library.InitializeFromDirectory(directory)
		command := &api.LoadFinishedCommand{
			Directory: directory,
			Loaded:    loaded,
			Skipped:   skipped,
			Cancelled: s.library.Stopped(),
			Err:       err,
		}
		return func() {
			if err != nil {
				s.sender.SendError(fmt.Sprintf("Error while loading images from '%s'", directory), err)
			}
			s.sendImages()
			s.sender.SendCommandToTopic(api.LoadFinished, command)
		}
	})
}

func (s *Service) RequestImages() {
	s.sendImages()
}

func (s *Service) RotateClockwise(query *api.RotateQuery) {
	s.rotate(query.Id, s.library.RotateClockwise)
}

func (s *Service) RotateCounterClockwise(query *api.RotateQuery) {
	s.rotate(query.Id, s.library.RotateCounterClockwise)
}

func (s *Service) SetRotation(command *api.SetRotationCommand) {
	s.rotate(command.Id, func(id apitype.ImageId) (*apitype.ImageFile, error) {
		return s.library.SetRotation(id, command.Rotation)
	})
}

func (s *Service) rotate(id apitype.ImageId, rotate func(apitype.ImageId) (*apitype.ImageFile, error)) {
	if s.IsBusy() {
		s.sender.SendError("Images cannot be rotated while another operation is running", nil)
		return
	}
	imageFile, err := rotate(id)
	if err != nil {
		s.sender.SendError("Error while rotating image", err)
		return
	}
	s.sender.SendCommandToTopic(api.ImageRotated, &api.ImageRotatedCommand{
		Image:          imageFile,
		TargetRotation: imageFile.TargetRotation(),
		RotatedImages:  s.library.RotatedImages(),
	})
}

func (s *Service) RequestCommit() {
	s.runInBackground("rotating", func() func() {
		result := s.library.CommitRotations()
		return func() {
			if result.Unrecoverable != nil {
				s.sender.SendError("An original photo could not be restored", result.Unrecoverable)
			}
			s.sendImages()
			s.sender.SendCommandToTopic(api.CommitFinished, &api.CommitFinishedCommand{Result: result})
		}
	})
}

func (s *Service) RequestStop() {
	s.library.RequestStop()
}

func (s *Service) IsBusy() bool {
	return s.busy.Load()
}

// Wait blocks until the running background operation has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Close() {
	logger.Info.Print("Shutting down image service")
	s.library.RequestStop()
	s.Wait()
}

func (s *Service) sendImages() {
	s.sender.SendCommandToTopic(api.ImagesUpdated, &api.SetImagesCommand{
		Images:        s.library.GetImages(),
		TotalImages:   s.library.TotalImages(),
		RotatedImages: s.library.RotatedImages(),
	})
}

// runInBackground starts work unless another operation is running. The
// function returned by work publishes the results and is called after the
// service is no longer busy so that subscribers may start the next
// operation right away.
func (s *Service) runInBackground(name string, work func() func()) bool {
	if !s.busy.CompareAndSwap(false, true) {
		logger.Warn.Printf("Rejected %s, another operation is running", name)
		s.sender.SendError(fmt.Sprintf("Cannot start %s while another operation is running", name), nil)
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		var publish func()
		func() {
			defer s.busy.Store(false)
			publish = work()
		}()
		if publish != nil {
			publish()
		}
	}()
	return true
}
