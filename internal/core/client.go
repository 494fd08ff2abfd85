package core

import "github.com/vovakirdan/wirecall/internal/signal"

// DefaultEventBuffer is how many undelivered signals a client may hold
// before the hub starts dropping.
const DefaultEventBuffer = 16

// Client is one signaling connection of an account.
type Client struct {
	ID      string
	Account string
	Events  chan signal.Message
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id, account string) *Client {
	return &Client{
		ID:      id,
		Account: account,
		Events:  make(chan signal.Message, DefaultEventBuffer),
	}
}
