package apitype

// Command is a message published on the event broker.
type Command interface{}
