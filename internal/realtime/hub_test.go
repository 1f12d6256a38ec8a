package realtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records delivered envelopes; capacity 0 means unbounded
type fakeConn struct {
	mu       sync.Mutex
	received []Envelope
	capacity int
	closed   bool
}

func (f *fakeConn) Enqueue(env Envelope) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.capacity > 0 && len(f.received) >= f.capacity {
		return false
	}
	f.received = append(f.received, env)
	return true
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := make([]string, len(f.received))
	for i, env := range f.received {
		events[i] = env.Event
	}
	return events
}

func TestHubRooms(t *testing.T) {
	hub := NewHub()
	a, b := &fakeConn{}, &fakeConn{}

	hub.JoinRoom("s1", a)
	hub.JoinRoom("s1", b)
	assert.Equal(t, 2, hub.RoomSize("s1"))

	hub.Broadcast("s1", NewEnvelope(EventMembersChanged, nil))
	assert.Equal(t, []string{EventMembersChanged}, a.events())
	assert.Equal(t, []string{EventMembersChanged}, b.events())

	hub.LeaveRoom("s1", b)
	hub.Broadcast("s1", NewEnvelope(EventItemsChanged, nil))
	assert.Len(t, a.events(), 2)
	assert.Len(t, b.events(), 1)

	hub.LeaveRoom("s1", a)
	assert.Equal(t, 0, hub.RoomSize("s1"))

	// Broadcast to a gone room is a no-op
	hub.Broadcast("s1", NewEnvelope(EventItemsChanged, nil))
	assert.Len(t, a.events(), 2)
}

func TestHubBroadcastScopedToRoom(t *testing.T) {
	hub := NewHub()
	a, b := &fakeConn{}, &fakeConn{}
	hub.JoinRoom("s1", a)
	hub.JoinRoom("s2", b)

	hub.Broadcast("s1", NewEnvelope(EventItemsChanged, nil))

	assert.Len(t, a.events(), 1)
	assert.Empty(t, b.events())
}

func TestHubOrderingWithinRoom(t *testing.T) {
	hub := NewHub()

	conns := make([]*fakeConn, 4)
	for i := range conns {
		conns[i] = &fakeConn{}
		hub.JoinRoom("s1", conns[i])
	}

	// Hammer the room from several publishers; every member must observe
	// the same event order, whatever that order turns out to be
	const publishers = 4
	const perPublisher = 50

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				hub.Broadcast("s1", NewEnvelope(fmt.Sprintf("p%d-%d", p, i), nil))
			}
		}(p)
	}
	wg.Wait()

	reference := conns[0].events()
	require.Len(t, reference, publishers*perPublisher)
	for _, c := range conns[1:] {
		assert.Equal(t, reference, c.events())
	}
}

func TestHubDropsSlowConnection(t *testing.T) {
	hub := NewHub()
	slow := &fakeConn{capacity: 1}
	healthy := &fakeConn{}
	hub.JoinRoom("s1", slow)
	hub.JoinRoom("s1", healthy)

	hub.Broadcast("s1", NewEnvelope(EventItemsChanged, nil))
	hub.Broadcast("s1", NewEnvelope(EventItemsChanged, nil))

	assert.True(t, slow.closed)
	assert.False(t, healthy.closed)
	assert.Equal(t, 1, hub.RoomSize("s1"))
	assert.Len(t, healthy.events(), 2)
}
