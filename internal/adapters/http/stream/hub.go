// Package stream pushes presented batches and replay resolutions to
// websocket clients.
package stream

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/okian/saberlens/internal/domain/model"
	"github.com/okian/saberlens/pkg/logger"
	"github.com/okian/saberlens/pkg/metrics"
)

// Message types.
const (
	MessageTypeBatch  = "batch"
	MessageTypeReplay = "replay"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"

	defaultBroadcastBuffer = 256
	handshakeTimeout       = 10 * time.Second
)

// Message is one frame sent to clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub maintains the connected clients and fans messages out to them.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	// last batch frame, replayed to clients that connect later
	lastBatch []byte
	// closed when the current Serve run returns
	done chan struct{}

	upgrader websocket.Upgrader
	origins  map[string]struct{}
	logger   logger.Logger
}

// NewHub creates a hub. Run it with Serve before accepting clients.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, defaultBroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.Get().Named("stream"),
		done:       make(chan struct{}),
	}
	close(h.done)
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: handshakeTimeout,
		CheckOrigin:      h.checkOrigin,
	}
	return h
}

// Serve runs the hub until ctx is done, then closes every client.
func (h *Hub) Serve(ctx context.Context) error {
	done := make(chan struct{})
	h.mu.Lock()
	h.done = done
	h.mu.Unlock()
	defer close(done)

	for {
		// Lifecycle events go before broadcasts so a new client never
		// misses a frame that was queued after it registered.
		select {
		case <-ctx.Done():
			h.closeAll(ctx)
			return ctx.Err()
		case c := <-h.register:
			h.add(ctx, c)
			continue
		case c := <-h.unregister:
			h.remove(ctx, c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAll(ctx)
			return ctx.Err()
		case c := <-h.register:
			h.add(ctx, c)
		case c := <-h.unregister:
			h.remove(ctx, c)
		case frame := <-h.broadcast:
			h.fanOut(frame)
		}
	}
}

// String names the hub for the supervisor.
func (h *Hub) String() string { return "stream-hub" }

// PublishBatch implements the aggregator's Presenter.
func (h *Hub) PublishBatch(ctx context.Context, batch *model.EnrichedBatch) {
	frame, ok := h.encode(ctx, MessageTypeBatch, batch)
	if !ok {
		return
	}
	h.mu.Lock()
	h.lastBatch = frame
	h.mu.Unlock()
	h.send(ctx, MessageTypeBatch, frame)
}

// PublishReplay implements the worker's Publisher.
func (h *Hub) PublishReplay(ctx context.Context, res model.ReplayResolution) {
	if frame, ok := h.encode(ctx, MessageTypeReplay, res); ok {
		h.send(ctx, MessageTypeReplay, frame)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	c := newClient(h, conn)
	select {
	case h.register <- c:
		c.start()
	case <-h.stopped():
		_ = conn.Close()
	case <-r.Context().Done():
		_ = conn.Close()
	}
}

// stopped returns a channel closed while the hub is not serving.
func (h *Hub) stopped() <-chan struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.done
}

func (h *Hub) encode(ctx context.Context, typ string, data any) ([]byte, bool) {
	frame, err := json.Marshal(Message{Type: typ, Data: data})
	if err != nil {
		h.logger.Error(ctx, "encode stream message failed", logger.String("type", typ), logger.Error(err))
		return nil, false
	}
	return frame, true
}

func (h *Hub) send(ctx context.Context, typ string, frame []byte) {
	select {
	case h.broadcast <- frame:
	default:
		metrics.RecordErrorByComponent("stream", "broadcast_full")
		h.logger.Warn(ctx, "broadcast channel full, dropping message", logger.String("type", typ))
	}
}

func (h *Hub) add(ctx context.Context, c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	last := h.lastBatch
	h.mu.Unlock()

	if last != nil {
		select {
		case c.send <- last:
		default:
		}
	}
	metrics.UpdateStreamClients(n)
	h.logger.Info(ctx, "stream client connected", logger.Int("total_clients", n))
}

func (h *Hub) remove(ctx context.Context, c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.UpdateStreamClients(n)
	h.logger.Info(ctx, "stream client disconnected", logger.Int("total_clients", n))
}

// fanOut sends frame to every client in connection order. Clients that
// cannot keep up are dropped.
func (h *Hub) fanOut(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.sortedLocked() {
		select {
		case c.send <- frame:
		default:
			close(c.send)
			delete(h.clients, c)
		}
	}
	metrics.UpdateStreamClients(len(h.clients))
}

func (h *Hub) closeAll(ctx context.Context) {
	h.mu.Lock()
	clients := h.sortedLocked()
	for _, c := range clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()

	metrics.UpdateStreamClients(0)
	h.logger.Info(ctx, "stream hub stopped", logger.Int("clients_closed", len(clients)))
}

func (h *Hub) sortedLocked() []*Client {
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// checkOrigin accepts every origin unless an allow-list was configured.
func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.origins) == 0 {
		return true
	}
	_, ok := h.origins[r.Header.Get("Origin")]
	return ok
}
