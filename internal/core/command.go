package core

import "github.com/vovakirdan/wirecall/internal/signal"

// CommandKind describes what the hub is asked to do.
type CommandKind int

const (
	// CommandRegister adds a connection to its account group.
	CommandRegister CommandKind = iota
	// CommandUnregister removes a connection and closes its event channel.
	CommandUnregister
	// CommandNotify delivers a signal to every connection of an account.
	CommandNotify
	// CommandCount reports how many connections an account has.
	CommandCount
)

// Command is processed by the hub loop in arrival order.
type Command struct {
	Kind    CommandKind
	Client  *Client
	Account string
	Message signal.Message
	Reply   chan<- int
}
