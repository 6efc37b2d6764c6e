// Package live pushes server events (new media, refreshed lineup) to
// connected browsers over WebSocket.
package live

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 2 * time.Second

// client serializes writes; gorilla/websocket allows one writer at a time.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(msgType int, b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(msgType, b)
}

type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	log     *zap.Logger
	now     func() time.Time
}

type Stats struct {
	WSClients int `json:"ws_clients"`
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		log:     log,
		now:     time.Now,
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	_ = c.conn.Close()
}

func (h *Hub) encode(event string, payload any) ([]byte, error) {
	return json.Marshal(Event{Type: event, Data: payload, At: h.now().UTC()})
}

// BroadcastJSON sends event to every client. Clients that cannot take the
// write are dropped.
func (h *Hub) BroadcastJSON(event string, payload any) {
	b, err := h.encode(event, payload)
	if err != nil {
		h.log.Warn("encode live event", zap.String("type", event), zap.Error(err))
		return
	}

	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.write(websocket.TextMessage, b); err != nil {
			h.log.Debug("dropping live client", zap.Error(err))
			h.remove(c)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{WSClients: len(h.clients)}
}

// Close disconnects every client. Hijacked connections are not closed by
// http.Server.Shutdown, so the server calls this on the way down.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = c.conn.Close()
	}
}
