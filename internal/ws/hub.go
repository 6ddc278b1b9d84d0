package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"canvas-agent/internal/model"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1024
)

type outbound struct {
	documentID string
	payload    []byte
}

// Hub fans events out to editor connections. A client subscribed to a
// document only receives that document's events; a client without one
// receives everything.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *slog.Logger
}

// Register and Unregister are no-ops once Run has returned.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    map[*Client]struct{}{},
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "ws"),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug("client connected", "document_id", c.documentID, "clients", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				if c.documentID != "" && c.documentID != msg.documentID {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					h.logger.Warn("dropping slow client", "document_id", c.documentID)
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

func (h *Hub) BroadcastEvent(evt model.Event) {
	b, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("marshal ws event", "type", evt.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- outbound{documentID: evt.DocumentID, payload: b}:
	case <-h.done:
	}
}

type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	documentID string
}

// NewClient subscribes conn to documentID, or to every document when it
// is empty.
func NewClient(hub *Hub, conn *websocket.Conn, documentID string) *Client {
	return &Client{hub: hub, conn: conn, send: make(chan []byte, 128), documentID: documentID}
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
