package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/tabshare/tabshare/internal/session"
)

// Server ties the websocket transport to the session components: it
// dispatches inbound client events, runs them through the membership tracker
// and claim coordinator, and broadcasts the resulting state to the room.
type Server struct {
	hub         *Hub
	tracker     *session.Tracker
	presence    *session.Presence
	coordinator *session.Coordinator

	viewerURL string
	qrCode    func(url string) (string, error)

	locks sync.Map // session id -> *sync.Mutex
}

// NewServer creates a room server. qrCode may be nil, in which case
// sessionStarted events carry no QR code.
func NewServer(hub *Hub, tracker *session.Tracker, presence *session.Presence, coordinator *session.Coordinator, viewerURL string, qrCode func(url string) (string, error)) *Server {
	return &Server{
		hub:         hub,
		tracker:     tracker,
		presence:    presence,
		coordinator: coordinator,
		viewerURL:   viewerURL,
		qrCode:      qrCode,
	}
}

// HandleMessage dispatches one inbound envelope from a client
func (s *Server) HandleMessage(ctx context.Context, c *Client, env Envelope) {
	var err error

	switch env.Event {
	case RequestStartSession:
		err = s.startSession(ctx, c, env.Data)
	case RequestJoinSession:
		err = s.joinSession(ctx, c, env.Data)
	case RequestClaimItem:
		err = s.claimItem(ctx, c, env.Data)
	case RequestUnclaimItem:
		err = s.unclaimItem(ctx, c, env.Data)
	case RequestMarkPaid:
		err = s.markPaid(ctx, c, env.Data)
	default:
		err = fmt.Errorf("unknown event %q", env.Event)
	}

	if err != nil {
		s.sendError(c, env.Event, err)
	}
}

// HandleDisconnect reconciles a departing connection: its claims are
// released, membership is removed, and the room sees the reduced member list
// and the refreshed item state. Invoked for every disconnect, clean or not.
func (s *Server) HandleDisconnect(ctx context.Context, c *Client) {
	sessionID, ok := s.tracker.SessionOf(c.ID)
	if !ok {
		return
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	members := s.presence.ReconcileOnDisconnect(ctx, sessionID, c.ID)
	s.hub.LeaveRoom(sessionID, c)

	s.hub.Broadcast(sessionID, NewEnvelope(EventMembersChanged, MembersChangedEvent{SessionMembers: members}))
	s.broadcastItems(ctx, sessionID)
}

// startSession registers the caller as the session owner, joins it to the
// room, and announces the room with its join QR code. Ownership is fixed at
// the first call; a second start for the same session keeps the original
// owner.
func (s *Server) startSession(ctx context.Context, c *Client, data json.RawMessage) error {
	var req SessionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("malformed startSession request: %w", err)
	}

	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		return session.ErrNotFound
	}
	if _, err := s.coordinator.Session(ctx, id); err != nil {
		return err
	}

	if err := s.tracker.StartSession(req.SessionID, c.ID); err != nil {
		return err
	}
	s.hub.JoinRoom(req.SessionID, c)

	started := SessionStartedEvent{SessionID: req.SessionID}
	if s.qrCode != nil {
		code, err := s.qrCode(fmt.Sprintf("%s/%s", s.viewerURL, req.SessionID))
		if err != nil {
			log.Printf("[REALTIME]: failed to generate QR code for %s: %v", req.SessionID, err)
		} else {
			started.QRCode = code
		}
	}

	unlock := s.lockSession(req.SessionID)
	defer unlock()

	s.hub.Broadcast(req.SessionID, NewEnvelope(EventSessionStarted, started))
	s.broadcastMembers(req.SessionID)

	return nil
}

// joinSession adds the caller to an existing room and shares the current
// member list and item state with everyone. Each membership change also
// sweeps stale claims, so a claimant lost to a missed disconnect is cleared
// the next time the room changes shape.
func (s *Server) joinSession(ctx context.Context, c *Client, data json.RawMessage) error {
	var req SessionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("malformed joinSession request: %w", err)
	}

	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		return session.ErrNotFound
	}
	if _, err := s.coordinator.Session(ctx, id); err != nil {
		return err
	}

	if err := s.tracker.Join(req.SessionID, c.ID); err != nil {
		return err
	}
	s.hub.JoinRoom(req.SessionID, c)

	if err := s.presence.CleanupStaleClaims(ctx, req.SessionID); err != nil {
		log.Printf("[REALTIME]: stale claim cleanup failed for %s: %v", req.SessionID, err)
	}

	unlock := s.lockSession(req.SessionID)
	defer unlock()

	s.broadcastMembers(req.SessionID)
	s.broadcastItems(ctx, req.SessionID)

	return nil
}

// claimItem adds the caller to the item's claim set and shares the new item
// state with the room
func (s *Server) claimItem(ctx context.Context, c *Client, data json.RawMessage) error {
	req, id, err := s.parseItemRequest(data)
	if err != nil {
		return err
	}

	unlock := s.lockSession(req.SessionID)
	defer unlock()

	if err := s.coordinator.Claim(ctx, id, req.ItemID, c.ID); err != nil {
		return err
	}

	s.broadcastItems(ctx, req.SessionID)
	return nil
}

// unclaimItem removes the caller from the item's claim set
func (s *Server) unclaimItem(ctx context.Context, c *Client, data json.RawMessage) error {
	req, id, err := s.parseItemRequest(data)
	if err != nil {
		return err
	}

	unlock := s.lockSession(req.SessionID)
	defer unlock()

	if err := s.coordinator.Unclaim(ctx, id, req.ItemID, c.ID); err != nil {
		return err
	}

	s.broadcastItems(ctx, req.SessionID)
	return nil
}

// markPaid sets the item's paid state with the caller as payer. Omitting
// "paid" marks the item paid.
func (s *Server) markPaid(ctx context.Context, c *Client, data json.RawMessage) error {
	var req MarkPaidRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("malformed markPaid request: %w", err)
	}

	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		return session.ErrNotFound
	}

	paid := true
	if req.Paid != nil {
		paid = *req.Paid
	}

	unlock := s.lockSession(req.SessionID)
	defer unlock()

	if err := s.coordinator.SetPaid(ctx, id, req.ItemID, c.ID, paid); err != nil {
		return err
	}

	s.broadcastItems(ctx, req.SessionID)
	return nil
}

// broadcastMembers shares the current ordered member list with the room
func (s *Server) broadcastMembers(sessionID string) {
	members := s.presence.MembersView(sessionID)
	s.hub.Broadcast(sessionID, NewEnvelope(EventMembersChanged, MembersChangedEvent{SessionMembers: members}))
}

// broadcastItems reads the committed session state and shares the per-item
// claim/paid view with the room. Broadcasts only ever follow successful
// commits; a failed read is logged and the room simply keeps its last view.
func (s *Server) broadcastItems(ctx context.Context, sessionID string) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return
	}

	sess, err := s.coordinator.Session(ctx, id)
	if err != nil {
		log.Printf("[REALTIME]: failed to read session %s for broadcast: %v", sessionID, err)
		return
	}

	s.hub.Broadcast(sessionID, NewEnvelope(EventItemsChanged, ItemsChangedEvent{
		SessionID: sessionID,
		Items:     itemStates(sess),
	}))
}

// parseItemRequest decodes a claim/unclaim payload and its session id
func (s *Server) parseItemRequest(data json.RawMessage) (ItemRequest, uuid.UUID, error) {
	var req ItemRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, uuid.Nil, fmt.Errorf("malformed item request: %w", err)
	}

	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		return req, uuid.Nil, session.ErrNotFound
	}

	return req, id, nil
}

// sendError delivers a failure acknowledgment to the acting connection only
func (s *Server) sendError(c *Client, request string, err error) {
	log.Printf("[REALTIME]: %s failed for %s: %v", request, c.ID, err)
	c.Enqueue(NewEnvelope(EventError, ErrorEvent{Request: request, Message: err.Error()}))
}

// lockSession serializes commit-then-broadcast sequences for one session, so
// every room member observes item events in commit order. Different sessions
// use different locks and never contend.
func (s *Server) lockSession(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
