package api

import "vincit.fi/jpeg-rotator/api/apitype"

// Sender publishes commands from the background workers. Implementations
// must not block the caller while subscribers handle the command.
type Sender interface {
	SendCommandToTopic(topic Topic, command apitype.Command)
	SendError(message string, err error)
}
