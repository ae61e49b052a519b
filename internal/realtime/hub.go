// Package realtime pushes task row changes to connected clients. Postgres
// triggers emit a notification for every insert/update/delete on tasks; the
// listener decodes them and the hub fans them out to per-user subscribers.
package realtime

import (
	"sync"

	"todo-copilot-backend/internal/tasks"
)

const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// Event is one row change on the tasks table.
type Event struct {
	Op   string     `json:"op"`
	Task tasks.Task `json:"task"`
}

type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a listener for one user's task changes. The returned
// cancel func must be called when the client goes away.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan Event]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[userID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
				if len(set) == 0 {
					delete(h.subs, userID)
				}
			}
		}
	}
	return ch, cancel
}

// Publish routes an event to the owning user's subscribers. Slow consumers
// are skipped rather than blocking the listener loop.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[ev.Task.UserID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
