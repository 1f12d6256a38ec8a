package realtime

import "sync"

// Conn is the hub's view of a connection: a non-blocking outbound queue and
// a way to drop the connection when it cannot keep up. *Client satisfies it;
// tests substitute their own.
type Conn interface {
	Enqueue(env Envelope) bool
	Close()
}

// room is one session's fan-out set. Each room carries its own lock, so
// broadcasts to different sessions never contend with each other.
type room struct {
	mu    sync.Mutex
	conns map[Conn]struct{}
}

// Hub fans events out to every connection in a session's room. Holding the
// room lock for the entire fan-out guarantees all members observe events for
// a session in the same relative order they were published; no ordering is
// promised across sessions.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]*room),
	}
}

// JoinRoom adds a connection to a session's room, creating the room on first
// join
func (h *Hub) JoinRoom(sessionID string, c Conn) {
	h.mu.Lock()
	r, ok := h.rooms[sessionID]
	if !ok {
		r = &room{conns: make(map[Conn]struct{})}
		h.rooms[sessionID] = r
	}
	h.mu.Unlock()

	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
}

// LeaveRoom removes a connection from a session's room. The room entry is
// deleted once empty so long-running processes do not accumulate dead rooms.
func (h *Hub) LeaveRoom(sessionID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[sessionID]
	if !ok {
		return
	}

	r.mu.Lock()
	delete(r.conns, c)
	empty := len(r.conns) == 0
	r.mu.Unlock()

	if empty {
		delete(h.rooms, sessionID)
	}
}

// Broadcast publishes an event to every connection in the room. A connection
// whose queue is full is disconnected rather than allowed to stall the rest
// of the room.
func (h *Hub) Broadcast(sessionID string, env Envelope) {
	h.mu.RLock()
	r, ok := h.rooms[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	var dropped []Conn

	r.mu.Lock()
	for c := range r.conns {
		if !c.Enqueue(env) {
			dropped = append(dropped, c)
		}
	}
	for _, c := range dropped {
		delete(r.conns, c)
	}
	r.mu.Unlock()

	for _, c := range dropped {
		c.Close()
	}
}

// RoomSize reports how many connections are currently in a session's room
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	r, ok := h.rooms[sessionID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
