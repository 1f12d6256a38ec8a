package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepInterval is how often the stale-claim sweep runs when no
// interval is configured
const DefaultSweepInterval = time.Minute

// Sweeper periodically runs the stale-claim cleanup over every session that
// currently has members. Per-membership-change reconciliation handles clean
// disconnects; the sweep catches claims orphaned by abrupt network loss.
type Sweeper struct {
	cron     *cron.Cron
	tracker  *Tracker
	presence *Presence
}

// NewSweeper schedules a cleanup sweep at the given interval
func NewSweeper(tracker *Tracker, presence *Presence, interval time.Duration) (*Sweeper, error) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	s := &Sweeper{
		cron:     cron.New(),
		tracker:  tracker,
		presence: presence,
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.sweep); err != nil {
		return nil, fmt.Errorf("failed to schedule cleanup sweep: %w", err)
	}

	return s, nil
}

// Start begins the periodic sweep
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the periodic sweep
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// sweep runs one cleanup pass over all live sessions
func (s *Sweeper) sweep() {
	ctx := context.Background()

	for _, sessionID := range s.tracker.ActiveSessions() {
		if err := s.presence.CleanupStaleClaims(ctx, sessionID); err != nil {
			log.Printf("[SESSION]: stale claim sweep failed for %s: %v", sessionID, err)
		}
	}
}
