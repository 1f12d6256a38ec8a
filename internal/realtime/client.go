package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// sendQueueSize bounds the per-client outbound queue; a client that
	// falls this far behind is disconnected rather than blocking its room
	sendQueueSize = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one connected websocket participant. The connection id doubles
// as the claimant identifier in the session's claim sets.
type Client struct {
	ID string

	conn *websocket.Conn
	send chan Envelope

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient wraps an upgraded websocket connection with a bounded send queue
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan Envelope, sendQueueSize),
		done: make(chan struct{}),
	}
}

// Enqueue queues an outbound envelope without blocking. It reports false
// when the client is shutting down or its queue is full.
func (c *Client) Enqueue(env Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the client is shutting down
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close signals the client's goroutines to stop and closes the underlying
// connection. Idempotent; the send channel is never closed so concurrent
// broadcasters stay safe.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings. Runs as a single goroutine per client, so writes to the
// websocket are never concurrent.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
