package relay

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// client is one connected websocket with its outbound buffer.
type client struct {
	id       string
	conn     *websocket.Conn
	outgoing chan []byte
}

// Hub tracks connected clients and fans frames out to all of them.
type Hub struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	connectedClients.Set(float64(n))
}

// unregister removes c and closes its outbound buffer. Safe to call twice.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.outgoing)
	}
	n := len(h.clients)
	h.mu.Unlock()
	connectedClients.Set(float64(n))
}

// ClientCount returns number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues frame for every client, the sender included. Clients
// whose buffer is full miss the frame.
func (h *Hub) Broadcast(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.outgoing <- frame:
		default:
			framesDropped.Inc()
			h.logger.Warn("client buffer full, dropping frame", "client", c.id)
		}
	}
	framesBroadcast.Inc()
}

// DisconnectAll closes every client connection with StatusGoingAway.
func (h *Hub) DisconnectAll() {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, "relay restarting")
	}
}
