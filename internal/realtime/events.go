package realtime

import (
	"encoding/json"

	"github.com/tabshare/tabshare/internal/session"
	"github.com/tabshare/tabshare/internal/store"
)

// Events emitted to clients
const (
	EventSessionStarted = "sessionStarted"
	EventMembersChanged = "sessionMembersChanged"
	EventItemsChanged   = "sessionItemsChanged"
	EventError          = "error"
)

// Requests accepted from clients
const (
	RequestStartSession = "startSession"
	RequestJoinSession  = "joinSession"
	RequestClaimItem    = "claimItem"
	RequestUnclaimItem  = "unclaimItem"
	RequestMarkPaid     = "markPaid"
)

// Envelope is the wire format for every websocket message in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals a payload into an outbound envelope
func NewEnvelope(event string, payload any) Envelope {
	data, _ := json.Marshal(payload)
	return Envelope{Event: event, Data: data}
}

// SessionRequest addresses a session room
type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

// ItemRequest addresses one line item in a session
type ItemRequest struct {
	SessionID string `json:"sessionId"`
	ItemID    string `json:"itemId"`
}

// MarkPaidRequest sets an item's paid state. Paid defaults to true when
// omitted, matching the common "mark paid" action.
type MarkPaidRequest struct {
	SessionID string `json:"sessionId"`
	ItemID    string `json:"itemId"`
	Paid      *bool  `json:"paid,omitempty"`
}

// SessionStartedEvent announces a new room along with its join QR code
type SessionStartedEvent struct {
	SessionID string `json:"sessionId"`
	QRCode    string `json:"qrCode,omitempty"`
}

// MembersChangedEvent carries the full ordered member list after any
// membership change
type MembersChangedEvent struct {
	SessionMembers []session.Member `json:"sessionMembers"`
}

// ItemState is the per-item claim/paid view broadcast to the room
type ItemState struct {
	ID        string   `json:"id"`
	IsChecked bool     `json:"isChecked"`
	CheckedBy []string `json:"checkedBy"`
	IsPaid    bool     `json:"isPaid"`
	PaidBy    string   `json:"paidBy,omitempty"`
}

// ItemsChangedEvent carries the current state of every item in the session
type ItemsChangedEvent struct {
	SessionID string      `json:"sessionId"`
	Items     []ItemState `json:"items"`
}

// ErrorEvent is the failure acknowledgment sent only to the acting
// connection; the rest of the room sees nothing when an operation fails
type ErrorEvent struct {
	Request string `json:"request"`
	Message string `json:"message"`
}

// itemStates projects a stored session into the broadcast item view
func itemStates(s *store.Session) []ItemState {
	states := make([]ItemState, 0, len(s.Items))
	for i := range s.Items {
		item := &s.Items[i]
		states = append(states, ItemState{
			ID:        item.ItemID,
			IsChecked: item.IsChecked,
			CheckedBy: item.CheckedBy(),
			IsPaid:    item.IsPaid,
			PaidBy:    item.PaidBy,
		})
	}
	return states
}
