package core

import "github.com/vovakirdan/wirecall/internal/signal"

// Group holds the live connections of one account.
type Group struct {
	Account string
	clients map[*Client]struct{}
}

// NewGroup constructs a group with no clients.
func NewGroup(account string) *Group {
	return &Group{
		Account: account,
		clients: make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the group. Returns true if newly added.
func (g *Group) AddClient(c *Client) bool {
	if _, exists := g.clients[c]; exists {
		return false
	}
	g.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the group. Returns true if removed.
func (g *Group) RemoveClient(c *Client) bool {
	if _, exists := g.clients[c]; !exists {
		return false
	}
	delete(g.clients, c)
	return true
}

// Broadcast sends msg to every client and returns how many received it.
func (g *Group) Broadcast(msg signal.Message) int {
	delivered := 0
	for client := range g.clients {
		select {
		case client.Events <- msg:
			delivered++
		default:
			// Drop if slow consumer.
		}
	}
	return delivered
}

// Len is the number of connections.
func (g *Group) Len() int { return len(g.clients) }

// Empty returns true if no clients are in the group.
func (g *Group) Empty() bool {
	return len(g.clients) == 0
}
