// Package main provides the WebSocket hub for companion-site handoff.
// The companion page queries extension presence and requests a one-way
// paste of clipped items; the hub also pushes inbox-count changes so the
// manager view can show the pending badge without its own polling.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"shoplist-core/internal/logging"
	"shoplist-core/internal/project"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The companion site is same-origin-controlled; localhost only.
		return true
	},
}

// Broadcast event types.
const (
	EventInboxChanged   = "inbox.changed"
	EventProjectUpdated = "project.updated"
)

// Response message types for page requests.
const (
	TypePresence = "shoplist.presence"
	TypeItems    = "shoplist.items"
)

// WSEnvelope wraps all WebSocket messages.
type WSEnvelope struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// WSClient represents one connected page or surface.
type WSClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *WSHub
}

// WSHub maintains client connections and answers handoff requests.
type WSHub struct {
	manager    *project.Manager
	clients    map[string]*WSClient
	broadcast  chan []byte
	register   chan *WSClient
	unregister chan *WSClient
	mu         sync.RWMutex
}

// NewWSHub creates a hub bound to the manager.
func NewWSHub(manager *project.Manager) *WSHub {
	hub := &WSHub{
		manager:    manager,
		clients:    make(map[string]*WSClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
	go hub.run()
	return hub
}

func (h *WSHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			logging.Debug("WS client connected", map[string]interface{}{"client_id": client.id})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			logging.Debug("WS client disconnected", map[string]interface{}{"client_id": client.id})

		case message := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to every connected client.
func (h *WSHub) Broadcast(messageType string, data map[string]interface{}) {
	envelope := WSEnvelope{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		logging.Error("Failed to marshal WS message", err)
		return
	}
	h.broadcast <- bytes
}

// BroadcastInboxChanged pushes the pending inbox count.
func (h *WSHub) BroadcastInboxChanged(count int) {
	h.Broadcast(EventInboxChanged, map[string]interface{}{"count": count})
}

// BroadcastProjectUpdated signals that the active project changed on disk.
func (h *WSHub) BroadcastProjectUpdated(projectID string) {
	h.Broadcast(EventProjectUpdated, map[string]interface{}{"project_id": projectID})
}

// readPump handles page requests. No authentication is performed: any
// script in the page context may ask, an accepted trust boundary since the
// companion site controls its own origin.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn("WS read error", map[string]interface{}{"error": err.Error()})
			}
			break
		}

		var msg struct {
			Action     string `json:"action"`
			ClearAfter bool   `json:"clearAfter"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			logging.Warn("Invalid WS message", map[string]interface{}{"error": err.Error()})
			continue
		}

		switch msg.Action {
		case "presence":
			c.answerPresence()
		case "paste":
			c.answerPaste(msg.ClearAfter)
		case "ping":
			c.sendJSON(map[string]interface{}{"action": "pong", "timestamp": time.Now().Unix()})
		}
	}
}

// answerPresence responds to the companion site's liveness query.
func (c *WSClient) answerPresence() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := c.hub.manager.Inbox().Count(ctx)
	if err != nil {
		logging.Error("Presence query failed", err)
		count = 0
	}

	c.sendJSON(map[string]interface{}{
		"type":      TypePresence,
		"installed": true,
		"itemCount": count,
	})
}

// answerPaste hands the clipped items to the page, optionally clearing the
// inbox afterwards.
func (c *WSClient) answerPaste(clearAfter bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	items, err := c.hub.manager.Inbox().List(ctx)
	if err != nil {
		logging.Error("Paste handoff failed", err)
		return
	}

	c.sendJSON(map[string]interface{}{
		"type":  TypeItems,
		"items": items,
	})

	if clearAfter {
		if err := c.hub.manager.Inbox().Clear(ctx); err != nil {
			logging.Error("Failed to clear inbox after handoff", err)
		}
	}
}

func (c *WSClient) sendJSON(v interface{}) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- bytes:
	default:
	}
}

// writePump pumps messages to the connection with keepalive pings.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleWebSocket upgrades connections and registers clients with the hub.
func HandleWebSocket(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Error("WS upgrade failed", err)
			return
		}

		client := &WSClient{
			id:   time.Now().Format("20060102150405.000") + "-" + r.RemoteAddr,
			conn: conn,
			send: make(chan []byte, 256),
			hub:  hub,
		}

		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}
