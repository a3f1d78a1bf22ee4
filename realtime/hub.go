package realtime

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"taskhive/backend/logging"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 32
)

// Event is a single server-to-client push message.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Client is one websocket connection bound to an authenticated user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan Event
}

// Hub is the process-wide broadcast registry. It is constructed once in main
// and injected into the services that emit events; connect and disconnect are
// safe under concurrent request handling.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
	}
}

// UserRoom, TaskRoom and TeamRoom name the per-entity rooms events are
// scoped to.
func UserRoom(userID string) string { return "user-" + userID }
func TaskRoom(taskID string) string { return "task-" + taskID }
func TeamRoom(pmID string) string   { return "team-" + pmID }

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	h.joinLocked(c, UserRoom(c.userID))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)
}

func (h *Hub) joinLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[c] = true
}

// mayJoin limits client-requested subscriptions. Task and team rooms are
// joined on demand; a user room is private, so the only one a client may hold
// is its own, which register already handles.
func (c *Client) mayJoin(room string) bool {
	if strings.HasPrefix(room, "task-") || strings.HasPrefix(room, "team-") {
		return true
	}
	return room == UserRoom(c.userID)
}

// Join subscribes the client to a room it is allowed in.
func (h *Hub) Join(c *Client, room string) {
	if !c.mayJoin(room) {
		logging.Logger.Warnf("Event ID: REALTIME_JOIN_DENIED, Description: User %s denied subscription to room %s", c.userID, room)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		h.joinLocked(c, room)
	}
}

// Leave unsubscribes the client from a room.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// EmitToRoom pushes an event to every client in the room. Emission is
// fire-and-forget: clients with a full send buffer are skipped, never waited on.
func (h *Hub) EmitToRoom(room, event string, data interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- Event{Event: event, Data: data}:
		default:
			logging.Logger.Warnf("Event ID: REALTIME_SLOW_CLIENT, Description: Dropping %s event for user %s, send buffer full", event, c.userID)
		}
	}
}

// EmitToUser pushes an event to every connection of one user.
func (h *Hub) EmitToUser(userID, event string, data interface{}) {
	h.EmitToRoom(UserRoom(userID), event, data)
}

// EmitToTask pushes an event to every client subscribed to a task room.
func (h *Hub) EmitToTask(taskID, event string, data interface{}) {
	h.EmitToRoom(TaskRoom(taskID), event, data)
}

// Broadcast pushes an event to every connected client.
func (h *Hub) Broadcast(event string, data interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- Event{Event: event, Data: data}:
		default:
		}
	}
}

// RoomSize returns the number of clients currently in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// subscribeMessage is the only inbound message clients send: joining or
// leaving a task room.
type subscribeMessage struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

// ServeWS upgrades an authenticated request to a websocket connection and
// registers it with the hub. The caller has already validated the identity
// token and resolved the user id.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.Warnf("Event ID: REALTIME_UPGRADE_FAILED, Description: Websocket upgrade failed for user %s: %v", userID, err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan Event, sendBufferSize),
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg subscribeMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Action {
		case "join":
			c.hub.Join(c, msg.Room)
		case "leave":
			c.hub.Leave(c, msg.Room)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
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
