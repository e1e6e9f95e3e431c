package notifications

import (
	"context"
	"errors"
	"sync"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"
)

// maxTotalConns bounds the feed connections of one instance.
const maxTotalConns = 10000

var (
	ErrHubFull   = errors.New("feed connection limit reached")
	ErrHubClosed = errors.New("feed is shutting down")
)

// Hub keeps the open feed connections of this instance and fans every feed
// event out to all of them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	maxConns int
	closed   bool
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[*Client]struct{}),
		maxConns: maxTotalConns,
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "feed hub" }

// Register adds conn to the hub. The caller runs the returned client's pumps.
func (h *Hub) Register(conn Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= h.maxConns {
		return nil, ErrHubFull
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	h.clients[client] = struct{}{}
	observability.FeedConnections.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its send channel. Safe to call twice.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	observability.FeedConnections.Dec()
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll queues message for every client.
func (h *Hub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.trySend(message)
	}
}

// StartWiring forwards every event published on the feed channel, by any
// instance, to this hub's clients.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartFeedSubscriber(ctx, func(payload string) {
		h.BroadcastAll([]byte(payload))
	})
}

// Shutdown drops every client. Closing a client's send channel makes its
// write pump send the close frame and close the connection.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		observability.FeedConnections.Dec()
	}
	middleware.Logger.Info("feed hub shut down")
	return nil
}
