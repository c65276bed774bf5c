package event

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vincit.fi/jpeg-rotator/api"
)

const waitTimeout = 5 * time.Second

type RecordingGui struct {
	images   chan *api.SetImagesCommand
	progress chan *api.UpdateProgressCommand
	errors   chan *api.ErrorCommand
	loaded   chan *api.LoadFinishedCommand

	api.Gui
}

func NewRecordingGui() *RecordingGui {
	return &RecordingGui{
		images:   make(chan *api.SetImagesCommand, 10),
		progress: make(chan *api.UpdateProgressCommand, 10),
		errors:   make(chan *api.ErrorCommand, 10),
		loaded:   make(chan *api.LoadFinishedCommand, 10),
	}
}

func (s *RecordingGui) SetImages(command *api.SetImagesCommand)           { s.images <- command }
func (s *RecordingGui) ImageRotated(*api.ImageRotatedCommand)             {}
func (s *RecordingGui) UpdateProgress(command *api.UpdateProgressCommand) { s.progress <- command }
func (s *RecordingGui) LoadFinished(command *api.LoadFinishedCommand)     { s.loaded <- command }
func (s *RecordingGui) CommitFinished(*api.CommitFinishedCommand)         {}
func (s *RecordingGui) ShowError(command *api.ErrorCommand)               { s.errors <- command }

func receive[T any](t *testing.T, ch chan T) T {
	select {
	case value := <-ch:
		return value
	case <-time.After(waitTimeout):
		require.FailNow(t, "timed out waiting for command")
	}
	var zero T
	return zero
}

func TestBroker_ConnectToGui(t *testing.T) {
	a := assert.New(t)
	broker := InitBus(10)
	defer broker.Close()
	gui := NewRecordingGui()
	broker.ConnectToGui(gui)

	t.Run("Images", func(t *testing.T) {
		broker.SendCommandToTopic(api.ImagesUpdated, &api.SetImagesCommand{TotalImages: 3, RotatedImages: 1})

		command := receive(t, gui.images)
		a.Equal(3, command.TotalImages)
		a.Equal(1, command.RotatedImages)
	})

	t.Run("Progress keeps order", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			broker.SendCommandToTopic(api.ProcessStatusUpdated, &api.UpdateProgressCommand{Name: "Rotating", Current: i, Total: 3})
		}

		for i := 0; i < 3; i++ {
			a.Equal(i, receive(t, gui.progress).Current)
		}
	})

	t.Run("Load finished", func(t *testing.T) {
		broker.SendCommandToTopic(api.LoadFinished, &api.LoadFinishedCommand{Directory: "/photos", Loaded: 2})

		command := receive(t, gui.loaded)
		a.Equal("/photos", command.Directory)
		a.Equal(2, command.Loaded)
	})
}

func TestBroker_SendError(t *testing.T) {
	a := assert.New(t)
	broker := InitBus(10)
	defer broker.Close()
	gui := NewRecordingGui()
	broker.ConnectToGui(gui)

	t.Run("With error", func(t *testing.T) {
		broker.SendError("Could not rotate", errors.New("disk full"))

		a.Equal("Could not rotate\ndisk full", receive(t, gui.errors).Message)
	})

	t.Run("Without error", func(t *testing.T) {
		broker.SendError("Busy", nil)

		a.Equal("Busy", receive(t, gui.errors).Message)
	})
}
