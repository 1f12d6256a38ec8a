package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory session store used by tests and one-off
// tooling. It honors the same atomic-set semantics as the MySQL store: every
// claim mutation happens under the store lock, never as a read-modify-write
// round trip through the caller.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*Session),
	}
}

// CreateSession stores a new session in memory
func (s *MemoryStore) CreateSession(ctx context.Context, session *Session) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = time.Now().UTC()
	session.UpdatedAt = session.CreatedAt

	for i := range session.Items {
		session.Items[i].SessionID = session.ID
		if session.Items[i].ItemID == "" {
			session.Items[i].ItemID = uuid.NewString()
		}
	}

	stored := cloneSession(session)
	s.sessions[session.ID] = stored

	return session.ID, nil
}

// GetSession retrieves a deep copy of a session, so callers can never mutate
// stored claim state outside the store's own operations
func (s *MemoryStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, ErrNotFound
	}

	return cloneSession(session), nil
}

// AddClaim adds a connection to an item's claim set
func (s *MemoryStore) AddClaim(ctx context.Context, sessionID uuid.UUID, itemID, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.item(sessionID, itemID)
	if err != nil {
		return err
	}

	for _, claim := range item.Claims {
		if claim.ConnectionID == connectionID {
			item.IsChecked = true
			return nil
		}
	}

	item.Claims = append(item.Claims, Claim{
		SessionID:    sessionID,
		ItemID:       itemID,
		ConnectionID: connectionID,
	})
	item.IsChecked = true

	return nil
}

// RemoveClaim removes a connection from an item's claim set
func (s *MemoryStore) RemoveClaim(ctx context.Context, sessionID uuid.UUID, itemID, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.item(sessionID, itemID)
	if err != nil {
		return err
	}

	removeClaimFrom(item, connectionID)

	return nil
}

// RemoveClaimsBy removes a connection from every item's claim set
func (s *MemoryStore) RemoveClaimsBy(ctx context.Context, sessionID uuid.UUID, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return ErrNotFound
	}

	for i := range session.Items {
		removeClaimFrom(&session.Items[i], connectionID)
	}

	return nil
}

// SetPaid sets an item's paid state, last caller wins
func (s *MemoryStore) SetPaid(ctx context.Context, sessionID uuid.UUID, itemID, payerID string, paid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.item(sessionID, itemID)
	if err != nil {
		return err
	}

	item.IsPaid = paid
	if paid {
		item.PaidBy = payerID
	} else {
		item.PaidBy = ""
	}

	return nil
}

// SetItemStatuses applies a partial status update to a batch of items
// atomically: the store lock is held for the whole batch and missing items
// fail the batch before any change lands
func (s *MemoryStore) SetItemStatuses(ctx context.Context, sessionID uuid.UUID, itemIDs []string, status ItemStatus) error {
	if len(itemIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]*LineItem, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		item, err := s.item(sessionID, itemID)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	for _, item := range items {
		if status.IsChecked != nil {
			item.IsChecked = *status.IsChecked
		}
		if status.IsPaid != nil {
			item.IsPaid = *status.IsPaid
		}
		if status.PaidBy != nil {
			item.PaidBy = *status.PaidBy
		}
		if status.CheckedBy != nil {
			item.Claims = item.Claims[:0]
			for _, connectionID := range *status.CheckedBy {
				item.Claims = append(item.Claims, Claim{
					SessionID:    sessionID,
					ItemID:       item.ItemID,
					ConnectionID: connectionID,
				})
			}
		}
	}

	return nil
}

// SetInitiator sets the owner's payout handles on the session
func (s *MemoryStore) SetInitiator(ctx context.Context, sessionID uuid.UUID, initiator Initiator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return ErrNotFound
	}

	session.InitiatorCashTag = initiator.CashTag
	session.InitiatorVenmoHandle = initiator.VenmoHandle
	session.InitiatorName = initiator.HumanName

	return nil
}

// SetTip overrides the parsed tip with a manual amount
func (s *MemoryStore) SetTip(ctx context.Context, sessionID uuid.UUID, tip float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return ErrNotFound
	}

	session.Tip = tip
	session.IsManualTip = true

	return nil
}

// item finds a line item under the store lock
func (s *MemoryStore) item(sessionID uuid.UUID, itemID string) (*LineItem, error) {
	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, ErrNotFound
	}

	item := session.Item(itemID)
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// removeClaimFrom drops one connection's claim and syncs the checked flag
func removeClaimFrom(item *LineItem, connectionID string) {
	claims := item.Claims[:0]
	for _, claim := range item.Claims {
		if claim.ConnectionID != connectionID {
			claims = append(claims, claim)
		}
	}
	item.Claims = claims
	item.IsChecked = len(item.Claims) > 0
}

// cloneSession deep-copies a session, its items, and their claims
func cloneSession(session *Session) *Session {
	clone := *session
	clone.Items = make([]LineItem, len(session.Items))
	for i, item := range session.Items {
		clone.Items[i] = item
		clone.Items[i].Claims = make([]Claim, len(item.Claims))
		copy(clone.Items[i].Claims, item.Claims)
	}
	return &clone
}
