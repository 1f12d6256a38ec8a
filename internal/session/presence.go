package session

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Presence produces the authoritative "who is here" view for a session and
// reconciles persisted claim state against it. The invariant it maintains:
// no item's claim set ever references a connection that is not currently a
// member of the session.
type Presence struct {
	tracker     *Tracker
	coordinator *Coordinator
}

// NewPresence creates a presence resolver over the given registry and
// coordinator
func NewPresence(tracker *Tracker, coordinator *Coordinator) *Presence {
	return &Presence{
		tracker:     tracker,
		coordinator: coordinator,
	}
}

// MembersView returns the ordered member list for a session, owner first.
// This is what gets broadcast after every membership change.
func (p *Presence) MembersView(sessionID string) []Member {
	return p.tracker.Members(sessionID)
}

// ReconcileOnDisconnect releases every claim the connection holds and then
// removes it from the member set, returning the reduced member view. A
// failed release never blocks membership removal; it is logged and repaired
// by the periodic stale-claim sweep.
func (p *Presence) ReconcileOnDisconnect(ctx context.Context, sessionID, connectionID string) []Member {
	if id, err := uuid.Parse(sessionID); err == nil {
		if err := p.coordinator.ReleaseAll(ctx, id, connectionID); err != nil {
			log.Printf("[SESSION]: failed to release claims for %s in %s: %v", connectionID, sessionID, err)
		}
	}

	p.tracker.Leave(sessionID, connectionID)

	return p.tracker.Members(sessionID)
}

// CleanupStaleClaims sweeps every item's claimants against the current
// member set and releases any claimant that is no longer present. It repairs
// claims left behind by missed disconnect events, is idempotent, and is safe
// to run alongside live claim traffic since each release is an atomic store
// operation.
func (p *Presence) CleanupStaleClaims(ctx context.Context, sessionID string) error {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return ErrNotFound
	}

	session, err := p.coordinator.Session(ctx, id)
	if err != nil {
		return err
	}

	current := make(map[string]struct{})
	for _, member := range p.tracker.Members(sessionID) {
		current[member.ID] = struct{}{}
	}

	stale := make(map[string]struct{})
	for _, item := range session.Items {
		for _, connectionID := range item.CheckedBy() {
			if _, ok := current[connectionID]; !ok {
				stale[connectionID] = struct{}{}
			}
		}
	}

	for connectionID := range stale {
		if err := p.coordinator.ReleaseAll(ctx, id, connectionID); err != nil {
			return err
		}
	}

	return nil
}
