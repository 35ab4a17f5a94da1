package hub

import (
	"log"
	"sync"
)

// Hub is the registry of live connections and the broadcast fan-out.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{conns: make(map[string]*Conn)}
}

// Add registers a connection.
func (h *Hub) Add(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID()] = c
}

// Remove unregisters and closes a connection.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	c, ok := h.conns[id]
	if ok {
		delete(h.conns, id)
	}
	h.mu.Unlock()

	if ok {
		c.Close()
	}
}

// Get resolves a connection by ID, or nil when it is gone.
func (h *Hub) Get(id string) *Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[id]
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends an event to every live connection in parallel, then
// prunes the connections whose send failed. The originating connection's
// personalized acknowledgment is a separate send path and is not affected.
func (h *Hub) Broadcast(v any) {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	failed := make([]string, len(targets))
	var wg sync.WaitGroup
	for i, c := range targets {
		wg.Add(1)
		go func(i int, c *Conn) {
			defer wg.Done()
			if err := c.Send(v); err != nil {
				failed[i] = c.ID()
			}
		}(i, c)
	}
	wg.Wait()

	for _, id := range failed {
		if id == "" {
			continue
		}
		log.Printf("pruning connection %s after failed broadcast", id)
		h.Remove(id)
	}
}

// CloseAll shuts down every connection, used on server shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[string]*Conn)
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
