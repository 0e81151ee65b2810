package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/remardo/mkk-portal/internal/domain"
)

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) DeleteByUserID(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockProfileRepository is a mock implementation of the profile lookups
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

// MockUUIDGenerator is a mock UUID generator for deterministic tests
type MockUUIDGenerator struct {
	mock.Mock
}

func (m *MockUUIDGenerator) NewString() string {
	return m.Called().String(0)
}

func activeProfile() *domain.Profile {
	return &domain.Profile{
		ID:       "user-1",
		FullName: "Иванов Иван",
		Email:    "ivanov@example.com",
		Role:     domain.RoleAgent,
		BranchID: "branch-7",
		IsActive: true,
	}
}

func TestSessionService_CreateSession(t *testing.T) {
	sessions := new(MockSessionRepository)
	profiles := new(MockProfileRepository)
	uuidGen := new(MockUUIDGenerator)
	svc := NewSessionService(sessions, profiles, uuidGen, 720*time.Hour)

	profiles.On("GetByID", mock.Anything, "user-1").Return(activeProfile(), nil)
	uuidGen.On("NewString").Return("session-id-1")

	var stored *domain.Session
	sessions.On("Create", mock.Anything, mock.AnythingOfType("*domain.Session")).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*domain.Session)
	}).Return(nil)

	token, err := svc.CreateSession(context.Background(), "user-1")

	require.NoError(t, err)
	assert.True(t, IsValidSessionToken(token))
	require.NotNil(t, stored)
	assert.Equal(t, "session-id-1", stored.ID)
	assert.Equal(t, "user-1", stored.UserID)
	assert.NotEqual(t, token, stored.TokenHash)
	assert.Len(t, stored.TokenHash, 64)
	assert.True(t, stored.ExpiresAt.After(stored.CreatedAt))
}

func TestSessionService_CreateSession_InactiveProfile(t *testing.T) {
	sessions := new(MockSessionRepository)
	profiles := new(MockProfileRepository)
	svc := NewSessionService(sessions, profiles, new(MockUUIDGenerator), time.Hour)

	inactive := activeProfile()
	inactive.IsActive = false
	profiles.On("GetByID", mock.Anything, "user-1").Return(inactive, nil)

	_, err := svc.CreateSession(context.Background(), "user-1")

	assert.ErrorIs(t, err, domain.ErrProfileInactive)
	sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSessionService_CreateSession_ProfileNotFound(t *testing.T) {
	sessions := new(MockSessionRepository)
	profiles := new(MockProfileRepository)
	svc := NewSessionService(sessions, profiles, new(MockUUIDGenerator), time.Hour)

	profiles.On("GetByID", mock.Anything, "ghost").Return(nil, domain.ErrProfileNotFound)

	_, err := svc.CreateSession(context.Background(), "ghost")

	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestSessionService_ValidateSession(t *testing.T) {
	sessions := new(MockSessionRepository)
	svc := NewSessionService(sessions, new(MockProfileRepository), new(MockUUIDGenerator), time.Hour)

	token := sessionTokenPrefix + "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	now := time.Now().UTC()
	sessions.On("GetByTokenHash", mock.Anything, hashToken(token)).Return(&domain.Session{
		ID:        "s1",
		UserID:    "user-1",
		TokenHash: hashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}, nil)

	userID, err := svc.ValidateSession(context.Background(), token)

	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestSessionService_ValidateSession_BadFormat(t *testing.T) {
	svc := NewSessionService(new(MockSessionRepository), new(MockProfileRepository), new(MockUUIDGenerator), time.Hour)

	for _, token := range []string{"", "mkk_short", "wrong_prefix", "mkk_" + "zz" + string(make([]byte, 62))} {
		_, err := svc.ValidateSession(context.Background(), token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, "token %q", token)
	}
}

func TestSessionService_ValidateSession_NotFound(t *testing.T) {
	sessions := new(MockSessionRepository)
	svc := NewSessionService(sessions, new(MockProfileRepository), new(MockUUIDGenerator), time.Hour)

	token := sessionTokenPrefix + "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	sessions.On("GetByTokenHash", mock.Anything, mock.Anything).Return(nil, domain.ErrSessionNotFound)

	_, err := svc.ValidateSession(context.Background(), token)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSessionService_ValidateSession_Expired(t *testing.T) {
	sessions := new(MockSessionRepository)
	svc := NewSessionService(sessions, new(MockProfileRepository), new(MockUUIDGenerator), time.Hour)

	token := sessionTokenPrefix + "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"
	now := time.Now().UTC()
	sessions.On("GetByTokenHash", mock.Anything, hashToken(token)).Return(&domain.Session{
		ID:        "s1",
		UserID:    "user-1",
		TokenHash: hashToken(token),
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}, nil)

	_, err := svc.ValidateSession(context.Background(), token)

	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestSessionService_PurgeExpired(t *testing.T) {
	sessions := new(MockSessionRepository)
	svc := NewSessionService(sessions, new(MockProfileRepository), new(MockUUIDGenerator), time.Hour)

	sessions.On("DeleteExpired", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(4), nil)

	count, err := svc.PurgeExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestIsValidSessionToken(t *testing.T) {
	valid := sessionTokenPrefix + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	assert.True(t, IsValidSessionToken(valid))
	assert.False(t, IsValidSessionToken("sk_"+valid[len(sessionTokenPrefix):]))
	assert.False(t, IsValidSessionToken(valid+"0"))
	assert.False(t, IsValidSessionToken(sessionTokenPrefix+"xyz"))
}
