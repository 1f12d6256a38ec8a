package realtime

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const maxMessageSize = 4096

// The REST layer already runs with permissive CORS, matching the original
// deployment where any origin may join a session room
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWebsocket upgrades a request into a realtime connection and runs its
// read loop until the client goes away
func (s *Server) HandleWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[REALTIME]: websocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn)
	go client.writePump()
	s.readPump(client)
}

// readPump consumes inbound envelopes for one client. When the loop exits
// for any reason, the disconnect path reconciles the client's claims and
// membership before the connection is torn down.
func (s *Server) readPump(client *Client) {
	defer func() {
		s.HandleDisconnect(context.Background(), client)
		client.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		if err := client.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[REALTIME]: connection %s read error: %v", client.ID, err)
			}
			return
		}

		s.HandleMessage(context.Background(), client, env)
	}
}
