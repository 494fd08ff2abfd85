package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall/internal/signal"
)

// Hub fans signaling messages out to the connections of an account.
// All state is owned by the Run loop.
type Hub struct {
	commands chan Command
	done     chan struct{}
	groups   map[string]*Group
	log      *zerolog.Logger
}

// NewHub creates a new signaling hub. Call Run to start it.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		commands: make(chan Command, 64),
		done:     make(chan struct{}),
		groups:   make(map[string]*Group),
		log:      logger,
	}
}

// Run processes commands until ctx is done, then closes every client's
// event channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case cmd := <-h.commands:
			h.handle(cmd)
		}
	}
}

// RegisterClient adds c to its account group.
func (h *Hub) RegisterClient(c *Client) error {
	return h.send(Command{Kind: CommandRegister, Client: c})
}

// UnregisterClient removes c and closes its event channel.
func (h *Hub) UnregisterClient(c *Client) error {
	return h.send(Command{Kind: CommandUnregister, Client: c})
}

// Notify delivers msg to every connection of account. Accounts without a
// connection and slow connections miss the message.
func (h *Hub) Notify(account string, msg signal.Message) {
	if err := h.send(Command{Kind: CommandNotify, Account: account, Message: msg}); err != nil {
		h.log.Warn().Err(err).Str("account", account).Str("kind", string(msg.Kind)).Msg("notify dropped")
	}
}

// Connections returns the number of live connections of account.
func (h *Hub) Connections(account string) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(Command{Kind: CommandCount, Account: account, Reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-h.done:
		return 0, ErrHubClosed
	}
}

func (h *Hub) send(cmd Command) error {
	select {
	case h.commands <- cmd:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) handle(cmd Command) {
	switch cmd.Kind {
	case CommandRegister:
		c := cmd.Client
		g, ok := h.groups[c.Account]
		if !ok {
			g = NewGroup(c.Account)
			h.groups[c.Account] = g
		}
		if g.AddClient(c) {
			h.log.Debug().Str("client_id", c.ID).Str("account", c.Account).Int("connections", g.Len()).Msg("client registered")
		}
	case CommandUnregister:
		c := cmd.Client
		g, ok := h.groups[c.Account]
		if !ok || !g.RemoveClient(c) {
			return
		}
		close(c.Events)
		if g.Empty() {
			delete(h.groups, c.Account)
		}
		h.log.Debug().Str("client_id", c.ID).Str("account", c.Account).Msg("client unregistered")
	case CommandNotify:
		g, ok := h.groups[cmd.Account]
		if !ok {
			h.log.Debug().Str("account", cmd.Account).Str("kind", string(cmd.Message.Kind)).Msg("account offline, signal dropped")
			return
		}
		if n := g.Broadcast(cmd.Message); n < g.Len() {
			h.log.Warn().
				Str("account", cmd.Account).
				Str("kind", string(cmd.Message.Kind)).
				Int("dropped", g.Len()-n).
				Msg("slow consumer, signal dropped")
		}
	case CommandCount:
		n := 0
		if g, ok := h.groups[cmd.Account]; ok {
			n = g.Len()
		}
		cmd.Reply <- n
	}
}

func (h *Hub) shutdown() {
	for account, g := range h.groups {
		for c := range g.clients {
			close(c.Events)
		}
		delete(h.groups, account)
	}
}
