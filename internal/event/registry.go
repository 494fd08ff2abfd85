package event

import "sync"

// Registry holds at most one handler per kind. The last registration wins.
// The zero value is an empty registry ready to use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
}

// NewRegistry builds a registry seeded with initial. A nil map is allowed.
func NewRegistry(initial map[Kind]Handler) *Registry {
	r := &Registry{handlers: make(map[Kind]Handler, len(initial))}
	for k, h := range initial {
		if h != nil {
			r.handlers[k] = h
		}
	}
	return r
}

// ForAll builds a registry that routes every kind to h.
func ForAll(h Handler) *Registry {
	r := NewRegistry(nil)
	for _, k := range Kinds() {
		r.handlers[k] = h
	}
	return r
}

// AddEvent binds h to k, replacing any previous handler.
func (r *Registry) AddEvent(k Kind, h Handler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	if r.handlers == nil {
		r.handlers = make(map[Kind]Handler)
	}
	r.handlers[k] = h
	r.mu.Unlock()
}

// RemoveEvent unbinds k.
func (r *Registry) RemoveEvent(k Kind) {
	r.mu.Lock()
	delete(r.handlers, k)
	r.mu.Unlock()
}

// GetEvent returns the handler bound to k.
func (r *Registry) GetEvent(k Kind) (Handler, bool) {
	r.mu.RLock()
	h, ok := r.handlers[k]
	r.mu.RUnlock()
	return h, ok
}

// GetEvents returns a copy of every binding.
func (r *Registry) GetEvents() map[Kind]Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Kind]Handler, len(r.handlers))
	for k, h := range r.handlers {
		out[k] = h
	}
	return out
}

// AddEvents merges batch into the registry; batch wins on conflict.
func (r *Registry) AddEvents(batch map[Kind]Handler) {
	r.mu.Lock()
	if r.handlers == nil {
		r.handlers = make(map[Kind]Handler, len(batch))
	}
	for k, h := range batch {
		if h != nil {
			r.handlers[k] = h
		}
	}
	r.mu.Unlock()
}

// RemoveEvents drops every binding.
func (r *Registry) RemoveEvents() {
	r.mu.Lock()
	r.handlers = make(map[Kind]Handler)
	r.mu.Unlock()
}
