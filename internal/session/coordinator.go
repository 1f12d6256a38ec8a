package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tabshare/tabshare/internal/store"
)

const (
	// DefaultStoreTimeout bounds every store call so a hung store connection
	// surfaces as a transient failure instead of stalling the caller
	DefaultStoreTimeout = 5 * time.Second

	// readRetryBackoff is the pause before the single retry on failed reads
	readRetryBackoff = 100 * time.Millisecond
)

// Coordinator serializes claim, unclaim, and payment mutations against the
// store. It is the only component that touches an item's claim/paid fields,
// and every mutation is an atomic set operation at the store level, so
// concurrent requests against the same item never overwrite each other.
type Coordinator struct {
	store   store.Store
	tracker *Tracker
	timeout time.Duration
}

// NewCoordinator creates a claim coordinator. A timeout of zero falls back
// to DefaultStoreTimeout.
func NewCoordinator(st store.Store, tracker *Tracker, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Coordinator{
		store:   st,
		tracker: tracker,
		timeout: timeout,
	}
}

// Claim adds a connection to an item's claim set and marks the item checked.
// Multiple connections may claim the same item; claims are set-union, not
// last-writer-wins.
func (c *Coordinator) Claim(ctx context.Context, sessionID uuid.UUID, itemID, connectionID string) error {
	if err := c.requireMember(sessionID, connectionID); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.wrap(c.store.AddClaim(ctx, sessionID, itemID, connectionID))
}

// Unclaim removes a connection from an item's claim set. The item stays
// checked while other claimants remain.
func (c *Coordinator) Unclaim(ctx context.Context, sessionID uuid.UUID, itemID, connectionID string) error {
	if err := c.requireMember(sessionID, connectionID); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.wrap(c.store.RemoveClaim(ctx, sessionID, itemID, connectionID))
}

// ReleaseAll removes a connection from every item's claim set in the
// session. This is the release path used by disconnect reconciliation and
// the stale-claim sweep, so it does not require live membership.
func (c *Coordinator) ReleaseAll(ctx context.Context, sessionID uuid.UUID, connectionID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.wrap(c.store.RemoveClaimsBy(ctx, sessionID, connectionID))
}

// SetPaid sets an item's paid state. A payment has exactly one payer, so the
// last caller wins on paidBy.
func (c *Coordinator) SetPaid(ctx context.Context, sessionID uuid.UUID, itemID, payerID string, paid bool) error {
	if err := c.requireMember(sessionID, payerID); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.wrap(c.store.SetPaid(ctx, sessionID, itemID, payerID, paid))
}

// SetBulkStatus applies a partial status update to a batch of items
// atomically from the store's perspective: a subsequent read sees all listed
// items updated or none of them
func (c *Coordinator) SetBulkStatus(ctx context.Context, sessionID uuid.UUID, itemIDs []string, status store.ItemStatus) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.wrap(c.store.SetItemStatuses(ctx, sessionID, itemIDs, status))
}

// Session reads the current session state. Reads are retried once with a
// short backoff on transient failure; writes are never silently retried,
// since a duplicated write could double-apply a claim-set mutation.
func (c *Coordinator) Session(ctx context.Context, sessionID uuid.UUID) (*store.Session, error) {
	readCtx, cancel := context.WithTimeout(ctx, c.timeout)
	session, err := c.store.GetSession(readCtx, sessionID)
	cancel()
	if err == nil {
		return session, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}

	select {
	case <-time.After(readRetryBackoff):
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrTransientStore, ctx.Err())
	}

	readCtx, cancel = context.WithTimeout(ctx, c.timeout)
	defer cancel()
	session, err = c.store.GetSession(readCtx, sessionID)
	if err != nil {
		return nil, c.wrap(err)
	}

	return session, nil
}

// requireMember rejects operations from connections that have not joined the
// session
func (c *Coordinator) requireMember(sessionID uuid.UUID, connectionID string) error {
	if !c.tracker.IsMember(sessionID.String(), connectionID) {
		return fmt.Errorf("%w: connection %s has not joined session %s", ErrInvalidState, connectionID, sessionID)
	}
	return nil
}

// wrap maps store failures onto the session error taxonomy
func (c *Coordinator) wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrTransientStore, err)
}
