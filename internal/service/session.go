package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/remardo/mkk-portal/internal/domain"
)

const sessionTokenPrefix = "mkk_"

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

var _ UUIDGenerator = (*DefaultUUIDGenerator)(nil)

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	DeleteByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type SessionProfileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
}

// SessionService issues and validates opaque employee session tokens.
// Tokens are stored hashed; the plaintext exists only in the caller's hands.
type SessionService struct {
	sessions SessionRepository
	profiles SessionProfileRepository
	uuidGen  UUIDGenerator
	ttl      time.Duration
}

func NewSessionService(sessions SessionRepository, profiles SessionProfileRepository, uuidGen UUIDGenerator, ttl time.Duration) *SessionService {
	return &SessionService{
		sessions: sessions,
		profiles: profiles,
		uuidGen:  uuidGen,
		ttl:      ttl,
	}
}

// CreateSession issues a new session token for the given employee.
// Returns the plaintext token exactly once.
func (s *SessionService) CreateSession(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !profile.IsActive {
		return "", domain.ErrProfileInactive
	}

	token, err := generateSessionToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate session token", err)
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:        s.uuidGen.NewString(),
		UserID:    userID,
		TokenHash: hashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := domain.ValidateSession(session); err != nil {
		return "", err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}

	return token, nil
}

// ValidateSession resolves a bearer token to the employee it belongs to.
func (s *SessionService) ValidateSession(ctx context.Context, token string) (string, error) {
	if !IsValidSessionToken(token) {
		return "", domain.ErrUnauthorized
	}

	session, err := s.sessions.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		if err == domain.ErrSessionNotFound {
			return "", domain.ErrUnauthorized
		}
		return "", err
	}

	if session.IsExpired(time.Now().UTC()) {
		return "", domain.ErrSessionExpired
	}

	return session.UserID, nil
}

// RevokeUserSessions deletes all sessions of an employee.
func (s *SessionService) RevokeUserSessions(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}

	return s.sessions.DeleteByUserID(ctx, userID)
}

// PurgeExpired deletes sessions past their expiry and returns the count.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, time.Now().UTC())
}

func generateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return sessionTokenPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func IsValidSessionToken(token string) bool {
	if !strings.HasPrefix(token, sessionTokenPrefix) {
		return false
	}
	hexPart := token[len(sessionTokenPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
