// Package server exposes the intervox HTTP API and the websocket interview
// channel. The channel is room-based: every connection joined to a session
// id receives the push events the orchestrator emits for that session.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// envelope is the wire form of every channel event, client- and server-bound.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// sendBuffer bounds the per-connection outbound queue. A connection that
// cannot drain in time loses events rather than blocking the orchestrator.
const sendBuffer = 32

// writeTimeout bounds a single frame write to a client.
const writeTimeout = 5 * time.Second

// client is one websocket connection and its outbound queue.
type client struct {
	conn *websocket.Conn
	send chan []byte

	mu        sync.Mutex
	sessionID string
}

func (c *client) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *client) joinSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// writeLoop drains the send queue onto the wire. Exits when the queue closes
// or a write fails; the read side notices via the closed connection.
func (c *client) writeLoop() {
	for msg := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			return
		}
	}
}

// Hub tracks which connections are joined to which session room and fans
// push events out to them. Implements orchestrator.Notifier.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
	log   *slog.Logger
}

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		log:   log,
	}
}

func (h *Hub) join(c *client, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev := c.session(); prev != "" {
		h.removeLocked(c, prev)
	}
	c.joinSession(sessionID)
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[sessionID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id := c.session(); id != "" {
		h.removeLocked(c, id)
	}
}

func (h *Hub) removeLocked(c *client, sessionID string) {
	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
}

// Notify pushes one event to every connection in the session's room. Never
// blocks: clients with a full queue drop the event.
func (h *Hub) Notify(sessionID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("unmarshalable push payload", "event", event, "error", err)
		return
	}
	msg, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		h.log.Error("unmarshalable push envelope", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[sessionID] {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("slow channel client, dropping event",
				"session", sessionID, "event", event)
		}
	}
}

// NotifyTo sends one event to a single connection, used for replies that
// should not reach the whole room (e.g. session-missing before a join).
func (h *Hub) notifyTo(c *client, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// RoomSize reports how many connections are joined to a session. Test hook.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}
