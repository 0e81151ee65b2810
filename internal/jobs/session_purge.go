package jobs

import (
	"context"
	"fmt"
	"log"
)

// SessionPurger deletes expired sessions and reports the count.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SessionPurgeWorker removes expired employee sessions on each poll.
// Expired sessions are already rejected at validation time; the purge
// only keeps the table from growing without bound.
type SessionPurgeWorker struct {
	purger SessionPurger
}

// NewSessionPurgeWorker creates a new SessionPurgeWorker instance
func NewSessionPurgeWorker(purger SessionPurger) *SessionPurgeWorker {
	return &SessionPurgeWorker{purger: purger}
}

// ProcessJobs deletes all sessions past their expiry.
func (w *SessionPurgeWorker) ProcessJobs(ctx context.Context) error {
	count, err := w.purger.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge expired sessions: %w", err)
	}

	if count > 0 {
		log.Printf("Purged %d expired sessions", count)
	}

	return nil
}
