package service

import (
	"context"

	"github.com/remardo/mkk-portal/internal/domain"
)

// ProfileRepository defines the profile lookups needed for access resolution
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
}

// AccessService derives the authorization attributes of a request.
// Every retrieval runs under the context it produces; nothing downstream
// may touch the index without one.
type AccessService struct {
	profiles ProfileRepository
}

func NewAccessService(profiles ProfileRepository) *AccessService {
	return &AccessService{profiles: profiles}
}

// Resolve builds the access context for an authenticated employee.
func (s *AccessService) Resolve(ctx context.Context, userID string) (*domain.AccessContext, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return domain.AccessContextFor(profile)
}
