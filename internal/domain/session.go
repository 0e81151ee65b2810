package domain

import (
	"fmt"
	"time"
)

// Session represents an authenticated employee session
type Session struct {
	ID        string
	UserID    string
	TokenHash string // Never store plaintext tokens
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired returns true if the session has expired at the given instant.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// ValidateSession validates a Session instance
func ValidateSession(s *Session) error {
	if s == nil {
		return fmt.Errorf("session cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	if s.UserID == "" {
		return fmt.Errorf("session UserID is required")
	}

	if s.TokenHash == "" {
		return fmt.Errorf("session TokenHash is required")
	}

	if s.ExpiresAt.IsZero() {
		return fmt.Errorf("session ExpiresAt is required")
	}

	return nil
}
