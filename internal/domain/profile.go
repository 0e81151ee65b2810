package domain

import (
	"fmt"
	"time"
)

// Profile represents an employee record.
type Profile struct {
	ID        string
	FullName  string
	Email     string
	Role      UserRole
	BranchID  string // empty for head-office staff
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccessContext carries the authorization attributes of one request.
// It is derived from the authenticated identity and is immutable for
// the lifetime of the request; retrieval must never run without it.
type AccessContext struct {
	UserID   string
	Role     UserRole
	BranchID string
}

// ValidateProfile validates a Profile instance
func ValidateProfile(p *Profile) error {
	if p == nil {
		return fmt.Errorf("profile cannot be nil")
	}

	if p.ID == "" {
		return fmt.Errorf("profile ID is required")
	}

	if p.FullName == "" {
		return fmt.Errorf("profile FullName is required")
	}

	if !p.Role.IsValid() {
		return ErrInvalidRole
	}

	return nil
}

// AccessContextFor builds the access context for a profile.
// Fails for deactivated profiles: a disabled employee must not be
// able to retrieve anything.
func AccessContextFor(p *Profile) (*AccessContext, error) {
	if err := ValidateProfile(p); err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrProfileInactive
	}
	return &AccessContext{
		UserID:   p.ID,
		Role:     p.Role,
		BranchID: p.BranchID,
	}, nil
}
