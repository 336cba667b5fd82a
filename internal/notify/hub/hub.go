package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"canteen-backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// frame is what clients send to manage their room membership.
type frame struct {
	Action string `json:"action"`
	Email  string `json:"email"`
}

// envelope is what the hub writes to clients.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub owns the subscriber registry: which connections belong to which
// email-keyed room. All maps are guarded by mu; EmitToGroup and EmitToAll
// are safe to call concurrently with joins and disconnects.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	rooms   map[string]map[*client]struct{}

	upgrader websocket.Upgrader
	log      *logger.Logger
}

type client struct {
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]struct{}
}

func New(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		rooms:   make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// ServeHTTP upgrades the request and runs the connection until it drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Action("ws_upgrade_failed").Error("Failed to upgrade connection", err)
		return
	}

	c := &client{
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]struct{}),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer h.drop(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			h.log.Action("ws_frame_invalid").Warn("Ignoring malformed frame")
			continue
		}
		switch f.Action {
		case "joinRoom":
			if f.Email != "" {
				h.join(c, f.Email)
			}
		case "leaveRoom":
			if f.Email != "" {
				h.leave(c, f.Email)
			}
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
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

func (h *Hub) join(c *client, key string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[key] == nil {
		h.rooms[key] = make(map[*client]struct{})
	}
	h.rooms[key][c] = struct{}{}
	c.rooms[key] = struct{}{}
	h.log.Action("room_joined").Debug("Client joined room", "room", key)
}

func (h *Hub) leave(c *client, key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, key)
}

func (h *Hub) leaveLocked(c *client, key string) {
	if members, ok := h.rooms[key]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, key)
		}
	}
	delete(c.rooms, key)
}

// drop removes the client from every room and the registry on disconnect.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	for key := range c.rooms {
		h.leaveLocked(c, key)
	}
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	c.conn.Close()
}

// EmitToGroup sends the event to every connection in the room. Returns an
// error when the room has no subscribers so callers can log the miss.
func (h *Hub) EmitToGroup(key, event string, payload any) error {
	msg, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal event %q: %w", event, err)
	}

	h.mu.RLock()
	members := h.rooms[key]
	for c := range members {
		h.trySend(c, msg)
	}
	n := len(members)
	h.mu.RUnlock()

	if n == 0 {
		return fmt.Errorf("no subscribers in room %q", key)
	}
	return nil
}

// EmitToAll broadcasts the event to every connected client.
func (h *Hub) EmitToAll(event string, payload any) error {
	msg, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal event %q: %w", event, err)
	}

	h.mu.RLock()
	for c := range h.clients {
		h.trySend(c, msg)
	}
	h.mu.RUnlock()
	return nil
}

// trySend drops the message when the client's buffer is full rather than
// blocking the emitter behind a slow consumer. Callers hold mu, so the
// channel cannot be closed underneath the send: drop closes it only under
// the write lock.
func (h *Hub) trySend(c *client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.log.Action("ws_send_dropped").Warn("Client send buffer full, dropping message")
	}
}

// RoomSize reports the number of connections subscribed to the room.
func (h *Hub) RoomSize(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[key])
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
