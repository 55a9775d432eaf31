package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/frost-haven/internal/engine"
)

const (
	maxStreamConns = 16
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	sendBuffer     = 64
)

// Message is the envelope for everything sent over the stream.
type Message struct {
	Type    string `json:"type"` // "snapshot", "float", "cue"
	Payload any    `json:"payload"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans colony updates out to connected websocket clients. It also
// serves as the effect and cue sink, so remote renderers get floating
// text and sounds alongside snapshots.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	count      chan int
	done       chan struct{}
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		count:      make(chan int),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		case c := <-h.register:
			if len(h.clients) >= maxStreamConns {
				close(c.send)
				continue
			}
			h.clients[c] = true
			slog.Debug("stream client connected", "clients", len(h.clients))
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow reader; drop it rather than stall everyone.
					close(c.send)
					delete(h.clients, c)
				}
			}
		case h.count <- len(h.clients):
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients(ctx context.Context) int {
	select {
	case n := <-h.count:
		return n
	case <-h.done:
		return 0
	case <-ctx.Done():
		return 0
	}
}

// Publish queues a message for every client. It never blocks; when the
// hub is backed up the message is dropped.
func (h *Hub) Publish(kind string, payload any) {
	data, err := json.Marshal(Message{Type: kind, Payload: payload})
	if err != nil {
		slog.Warn("stream encode failed", "type", kind, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// Snapshot publishes a colony view.
func (h *Hub) Snapshot(v engine.View) { h.Publish("snapshot", v) }

// Float implements engine.EffectSink.
func (h *Hub) Float(t engine.FloatText) { h.Publish("float", t) }

// Cue implements engine.CueSink.
func (h *Hub) Cue(c engine.Cue) { h.Publish("cue", c) }

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveWs upgrades the request and registers the connection. The first
// message is the current snapshot.
func (h *Hub) serveWs(w http.ResponseWriter, r *http.Request, first engine.View) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "error", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	if data, err := json.Marshal(Message{Type: "snapshot", Payload: first}); err == nil {
		c.send <- data
	}

	select {
	case h.register <- c:
	case <-r.Context().Done():
		conn.Close()
		return
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump discards inbound frames; it exists to process pongs and close.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("stream read error", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
