package event

import (
	"fmt"

	messagebus "github.com/vardius/message-bus"
	"vincit.fi/jpeg-rotator/api"
	"vincit.fi/jpeg-rotator/api/apitype"
	"vincit.fi/jpeg-rotator/common/logger"
)

// Broker passes commands from background workers to subscribers. Each
// subscriber receives its messages in order on its own goroutine.
type Broker struct {
	bus    messagebus.MessageBus
	topics map[api.Topic]bool

	api.Sender
}

func InitBus(queueSize int) *Broker {
	return &Broker{
		bus:    messagebus.New(queueSize),
		topics: map[api.Topic]bool{},
	}
}

func (s *Broker) Subscribe(topic api.Topic, fn interface{}) {
	err := s.bus.Subscribe(string(topic), fn)
	if err != nil {
		logger.Error.Panic("Could not subscribe: ", err)
	}
	s.topics[topic] = true
}

// ConnectToGui subscribes the Gui to every topic it handles.
func (s *Broker) ConnectToGui(gui api.Gui) {
	s.Subscribe(api.ImagesUpdated, gui.SetImages)
	s.Subscribe(api.ImageRotated, gui.ImageRotated)
	s.Subscribe(api.ProcessStatusUpdated, gui.UpdateProgress)
	s.Subscribe(api.LoadFinished, gui.LoadFinished)
	s.Subscribe(api.CommitFinished, gui.CommitFinished)
	s.Subscribe(api.ShowError, gui.ShowError)
}

func (s *Broker) SendCommandToTopic(topic api.Topic, command apitype.Command) {
	logger.Trace.Printf("Sending command to '%s'", topic)
	s.bus.Publish(string(topic), command)
}

func (s *Broker) SendError(message string, err error) {
	formattedMessage := ""
	if err != nil {
		formattedMessage = fmt.Sprintf("%s\n%s", message, err.Error())
	} else {
		formattedMessage = message
	}
	logger.Error.Printf("Error: %s", formattedMessage)
	s.SendCommandToTopic(api.ShowError, &api.ErrorCommand{Message: formattedMessage})
}

// Close stops the subscriber goroutines of all subscribed topics.
func (s *Broker) Close() {
	for topic := range s.topics {
		s.bus.Close(string(topic))
	}
}
