package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"vincit.fi/jpeg-rotator/api"
	"vincit.fi/jpeg-rotator/common/logger"
)

const progressBarWidth = 40

// ConsoleGui shows the events published by the image service on the
// terminal. Results of the background operations are handed to the
// command that waits for them.
type ConsoleGui struct {
	errOut io.Writer

	bar     *progressbar.ProgressBar
	barName string
	mux     sync.Mutex

	loadFinished   chan *api.LoadFinishedCommand
	commitFinished chan *api.CommitFinishedCommand

	api.Gui
}

func NewConsoleGui(errOut io.Writer) *ConsoleGui {
	return &ConsoleGui{
		errOut:         errOut,
		loadFinished:   make(chan *api.LoadFinishedCommand, 1),
		commitFinished: make(chan *api.CommitFinishedCommand, 1),
	}
}

func (s *ConsoleGui) SetImages(command *api.SetImagesCommand) {
	logger.Debug.Printf("%d images, %d to rotate", command.TotalImages, command.RotatedImages)
}

func (s *ConsoleGui) ImageRotated(command *api.ImageRotatedCommand) {
	logger.Debug.Printf("'%s' will be rotated '%s' (%d to rotate)",
		command.Image.FileName(), command.TargetRotation, command.RotatedImages)
}

func (s *ConsoleGui) UpdateProgress(command *api.UpdateProgressCommand) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if command.Done {
		if s.bar != nil {
			_ = s.bar.Exit()
			fmt.Fprintln(s.errOut)
			s.bar = nil
		}
		return
	}

	if s.bar == nil || s.barName != command.Name {
		s.bar = progressbar.NewOptions(command.Total,
			progressbar.OptionSetWriter(s.errOut),
			progressbar.OptionSetDescription(command.Name),
			progressbar.OptionSetWidth(progressBarWidth),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
		)
		s.barName = command.Name
	}
	_ = s.bar.Set(command.Current)
}

func (s *ConsoleGui) LoadFinished(command *api.LoadFinishedCommand) {
	if len(command.Skipped) > 0 {
		s.printError(fmt.Sprintf("%d file(s) could not be loaded and were skipped:\n%s",
			len(command.Skipped), api.FormatFileList(command.Skipped)))
	}
	s.loadFinished <- command
}

func (s *ConsoleGui) CommitFinished(command *api.CommitFinishedCommand) {
	s.commitFinished <- command
}

func (s *ConsoleGui) ShowError(command *api.ErrorCommand) {
	s.printError(command.Message)
}

func (s *ConsoleGui) printError(message string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.bar != nil {
		_ = s.bar.Clear()
	}
	fmt.Fprintf(s.errOut, "Error: %s\n", strings.TrimSpace(message))
}

// WaitForLoad blocks until the image service has finished loading.
func (s *ConsoleGui) WaitForLoad() *api.LoadFinishedCommand {
	return <-s.loadFinished
}

// WaitForCommit blocks until the image service has finished committing.
func (s *ConsoleGui) WaitForCommit() *api.CommitFinishedCommand {
	return <-s.commitFinished
}
