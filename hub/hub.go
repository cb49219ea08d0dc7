// Package hub is the C5 fan-out hub and C6 connection handler: it owns
// client sessions and performs backpressure-aware broadcasting. Grounded
// directly on original_source/backend/internal/hub/hub.go and client.go.
package hub

import (
	"log/slog"
	"sync"
)

// Client is the minimal shape the hub needs to manage a session: a bounded
// send queue it owns and closes exactly once.
type Client struct {
	send chan []byte
	id   uint64
}

// Hub maintains the set of registered clients and fans broadcasts out to
// their send queues. Operations are serialized by a single internal loop so
// register/unregister/broadcast observe a consistent membership.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mu         sync.RWMutex
	logger     *slog.Logger
	nextID     uint64

	evictions  int64
	evictMu    sync.Mutex
}

// New returns a Hub ready to Run. logger must not be nil.
func New(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		logger:     logger,
	}
}

// NewClient allocates a Client with the given send-queue capacity. Callers
// register it with Register and must eventually Unregister it.
func (h *Hub) NewClient(sendBuffer int) *Client {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.mu.Unlock()
	return &Client{send: make(chan []byte, sendBuffer), id: id}
}

// Register admits a client into the broadcast set.
func (h *Hub) Register(c *Client) { h.register <- c }

// Unregister removes a client and closes its send queue exactly once.
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// Broadcast enqueues frame on every registered client's send queue.
// Standalone JSON text frames only: callers must never concatenate frames,
// since each is delivered as its own WebSocket text message.
func (h *Hub) Broadcast(frame []byte) { h.broadcast <- frame }

// Run executes the hub's serialization loop until done is closed.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client registered", "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "clients", n)

		case frame := <-h.broadcast:
			h.doBroadcast(frame)

		case <-done:
			return
		}
	}
}

// doBroadcast is the hot path: a read lock collects dead clients via a
// non-blocking send; the write lock to actually evict them is taken only
// when at least one client failed to enqueue, per the spec's design note.
func (h *Hub) doBroadcast(frame []byte) {
	h.mu.RLock()
	var dead []*Client
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			dead = append(dead, c)
		}
	}
	h.mu.RUnlock()

	if len(dead) == 0 {
		return
	}

	h.mu.Lock()
	for _, c := range dead {
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			close(c.send)
		}
	}
	h.mu.Unlock()

	h.evictMu.Lock()
	h.evictions += int64(len(dead))
	h.evictMu.Unlock()
	h.logger.Warn("dropped unresponsive clients", "count", len(dead))
}

// ClientCount returns the number of currently registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Evictions returns the cumulative count of clients dropped for backpressure.
func (h *Hub) Evictions() int64 {
	h.evictMu.Lock()
	defer h.evictMu.Unlock()
	return h.evictions
}
