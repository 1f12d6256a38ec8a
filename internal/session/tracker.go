package session

import (
	"fmt"
	"sync"
)

// Member is one live connection's view in a session room
type Member struct {
	ID      string `json:"id"`
	IsOwner bool   `json:"isOwner"`
}

// Tracker is the process-wide membership registry: which connections are in
// which session room, and which connection owns each session. It is purely
// ephemeral presence bookkeeping; the store remains the source of truth for
// claim state, and the registry starts empty on every process restart.
type Tracker struct {
	mu      sync.RWMutex
	owners  map[string]string   // session id -> owner connection id
	members map[string][]string // session id -> connection ids in join order
	rooms   map[string]string   // connection id -> session id
}

// NewTracker creates an empty membership registry. A single instance is
// constructed at startup and injected into the components that need it.
func NewTracker() *Tracker {
	return &Tracker{
		owners:  make(map[string]string),
		members: make(map[string][]string),
		rooms:   make(map[string]string),
	}
}

// StartSession joins a connection to a session and registers it as the owner
// if the session has none yet. A session has exactly one owner, fixed at the
// first successful call; repeat calls keep the original owner and still
// succeed. Membership and ownership move under one lock, so a connection
// already in a different session is rejected before anything changes and two
// racing starts cannot both win.
func (t *Tracker) StartSession(sessionID, connectionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, exists := t.rooms[connectionID]; exists {
		if current != sessionID {
			return fmt.Errorf("%w: connection %s is already in session %s", ErrInvalidState, connectionID, current)
		}
	} else {
		t.rooms[connectionID] = sessionID
		t.members[sessionID] = append(t.members[sessionID], connectionID)
	}

	if _, exists := t.owners[sessionID]; !exists {
		t.owners[sessionID] = connectionID
	}

	return nil
}

// Join adds a connection to a session's member set. A connection belongs to
// at most one session; joining a second session is rejected. Re-joining the
// same session is a no-op.
func (t *Tracker) Join(sessionID, connectionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, exists := t.rooms[connectionID]; exists {
		if current == sessionID {
			return nil
		}
		return fmt.Errorf("%w: connection %s is already in session %s", ErrInvalidState, connectionID, current)
	}

	t.rooms[connectionID] = sessionID
	t.members[sessionID] = append(t.members[sessionID], connectionID)

	return nil
}

// Leave removes a connection from a session's member set. If the connection
// owned the session, ownership becomes unassigned; there is no promotion.
// Empty registry entries are deleted so long-running processes do not leak.
func (t *Tracker) Leave(sessionID, connectionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rooms[connectionID] == sessionID {
		delete(t.rooms, connectionID)
	}

	ids := t.members[sessionID]
	for i, id := range ids {
		if id == connectionID {
			t.members[sessionID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}

	if t.owners[sessionID] == connectionID {
		delete(t.owners, sessionID)
	}

	if len(t.members[sessionID]) == 0 {
		delete(t.members, sessionID)
		delete(t.owners, sessionID)
	}
}

// Members returns the session's current members, owner first, the rest in
// join order
func (t *Tracker) Members(sessionID string) []Member {
	t.mu.RLock()
	defer t.mu.RUnlock()

	owner := t.owners[sessionID]
	ids := t.members[sessionID]

	view := make([]Member, 0, len(ids))
	for _, id := range ids {
		if id == owner {
			view = append([]Member{{ID: id, IsOwner: true}}, view...)
		} else {
			view = append(view, Member{ID: id})
		}
	}

	return view
}

// IsMember reports whether a connection is currently in the session
func (t *Tracker) IsMember(sessionID, connectionID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rooms[connectionID] == sessionID
}

// SessionOf returns the session a connection is currently in, if any
func (t *Tracker) SessionOf(connectionID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sessionID, exists := t.rooms[connectionID]
	return sessionID, exists
}

// ActiveSessions lists the sessions that currently have members, for the
// periodic stale-claim sweep
func (t *Tracker) ActiveSessions() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sessions := make([]string, 0, len(t.members))
	for sessionID := range t.members {
		sessions = append(sessions, sessionID)
	}
	return sessions
}
