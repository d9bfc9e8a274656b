package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FindNest-Estate/NestFind-sub000/internal/auth"
	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	apperrors "github.com/FindNest-Estate/NestFind-sub000/pkg/errors"
)

func newTestGate(userRepo *mockUserRepository, sessionRepo *mockSessionRepository) (*AccessControlGate, *auth.TokenIssuer) {
	issuer := auth.NewTokenIssuer("test-secret-key-for-testing", 15*time.Minute)
	registry := newTestRegistry(sessionRepo)
	return NewAccessControlGate(issuer, registry, userRepo), issuer
}

func liveSession(id, userID string) *domain.Session {
	return &domain.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
}

func TestAuthorize_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	sessionRepo := new(mockSessionRepository)
	gate, issuer := newTestGate(userRepo, sessionRepo)
	ctx := context.Background()

	token, err := issuer.Issue("user-1", "sess-1")
	require.NoError(t, err)

	sessionRepo.On("GetByID", ctx, "sess-1").Return(liveSession("sess-1", "user-1"), nil)
	userRepo.On("GetByID", ctx, "user-1").Return(&domain.User{
		ID:     "user-1",
		Status: domain.StatusActive,
		Roles:  []string{domain.RoleBuyer},
	}, nil)

	principal, err := gate.Authorize(ctx, token)

	require.NoError(t, err)
	assert.Equal(t, "user-1", principal.User.ID)
	assert.Equal(t, "sess-1", principal.Session.ID)
}

func TestAuthorize_MalformedToken(t *testing.T) {
	userRepo := new(mockUserRepository)
	sessionRepo := new(mockSessionRepository)
	gate, _ := newTestGate(userRepo, sessionRepo)

	_, err := gate.Authorize(context.Background(), "not-a-jwt")

	failure, ok := domain.AsAuthFailure(err)
	require.True(t, ok)
	assert.Equal(t, domain.FailureTokenInvalid, failure.Kind)
	sessionRepo.AssertNotCalled(t, "GetByID")
}

func TestAuthorize_RevokedSessionBeatsValidToken(t *testing.T) {
	userRepo := new(mockUserRepository)
	sessionRepo := new(mockSessionRepository)
	gate, issuer := newTestGate(userRepo, sessionRepo)
	ctx := context.Background()

	token, err := issuer.Issue("user-1", "sess-1")
	require.NoError(t, err)

	revoked := liveSession("sess-1", "user-1")
	revoked.RevokedAt = timePtr(time.Now().UTC())
	sessionRepo.On("GetByID", ctx, "sess-1").Return(revoked, nil)

	_, err = gate.Authorize(ctx, token)

	failure, ok := domain.AsAuthFailure(err)
	require.True(t, ok)
	assert.Equal(t, domain.FailureSessionRevoked, failure.Kind)
	userRepo.AssertNotCalled(t, "GetByID")
}

func TestAuthorize_SubjectSessionMismatch(t *testing.T) {
	userRepo := new(mockUserRepository)
	sessionRepo := new(mockSessionRepository)
	gate, issuer := newTestGate(userRepo, sessionRepo)
	ctx := context.Background()

	// Token claims a session that belongs to a different user.
	token, err := issuer.Issue("user-2", "sess-1")
	require.NoError(t, err)

	sessionRepo.On("GetByID", ctx, "sess-1").Return(liveSession("sess-1", "user-1"), nil)

	_, err = gate.Authorize(ctx, token)

	failure, ok := domain.AsAuthFailure(err)
	require.True(t, ok)
	assert.Equal(t, domain.FailureTokenInvalid, failure.Kind)
	userRepo.AssertNotCalled(t, "GetByID")
}

func TestAuthorize_FreshStatusOverridesClaims(t *testing.T) {
	userRepo := new(mockUserRepository)
	sessionRepo := new(mockSessionRepository)
	gate, issuer := newTestGate(userRepo, sessionRepo)
	ctx := context.Background()

	token, err := issuer.Issue("user-1", "sess-1")
	require.NoError(t, err)

	sessionRepo.On("GetByID", ctx, "sess-1").Return(liveSession("sess-1", "user-1"), nil)
	userRepo.On("GetByID", ctx, "user-1").Return(&domain.User{
		ID:     "user-1",
		Status: domain.StatusSuspended,
		Roles:  []string{domain.RoleBuyer},
	}, nil)

	_, err = gate.Authorize(ctx, token)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

func TestAuthorizeAnyStatus_AdmitsPendingUser(t *testing.T) {
	userRepo := new(mockUserRepository)
	sessionRepo := new(mockSessionRepository)
	gate, issuer := newTestGate(userRepo, sessionRepo)
	ctx := context.Background()

	token, err := issuer.Issue("user-1", "sess-1")
	require.NoError(t, err)

	sessionRepo.On("GetByID", ctx, "sess-1").Return(liveSession("sess-1", "user-1"), nil)
	userRepo.On("GetByID", ctx, "user-1").Return(&domain.User{
		ID:     "user-1",
		Status: domain.StatusPendingVerification,
		Roles:  []string{domain.RoleBuyer},
	}, nil)

	// The status gate rejects the pending user; the any-status variant must
	// still admit them so they can end their own session.
	_, err = gate.Authorize(ctx, token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	principal, err := gate.AuthorizeAnyStatus(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", principal.User.ID)
	assert.Equal(t, domain.StatusPendingVerification, principal.User.Status)
}

func TestAuthorizeAnyStatus_StillRejectsRevokedSession(t *testing.T) {
	userRepo := new(mockUserRepository)
	sessionRepo := new(mockSessionRepository)
	gate, issuer := newTestGate(userRepo, sessionRepo)
	ctx := context.Background()

	token, err := issuer.Issue("user-1", "sess-1")
	require.NoError(t, err)

	revoked := liveSession("sess-1", "user-1")
	revoked.RevokedAt = timePtr(time.Now().UTC())
	sessionRepo.On("GetByID", ctx, "sess-1").Return(revoked, nil)

	_, err = gate.AuthorizeAnyStatus(ctx, token)

	failure, ok := domain.AsAuthFailure(err)
	require.True(t, ok)
	assert.Equal(t, domain.FailureSessionRevoked, failure.Kind)
	userRepo.AssertNotCalled(t, "GetByID")
}

func TestAuthorize_RoleEnforcement(t *testing.T) {
	userRepo := new(mockUserRepository)
	sessionRepo := new(mockSessionRepository)
	gate, issuer := newTestGate(userRepo, sessionRepo)
	ctx := context.Background()

	token, err := issuer.Issue("user-1", "sess-1")
	require.NoError(t, err)

	sessionRepo.On("GetByID", ctx, "sess-1").Return(liveSession("sess-1", "user-1"), nil)
	userRepo.On("GetByID", ctx, "user-1").Return(&domain.User{
		ID:     "user-1",
		Status: domain.StatusActive,
		Roles:  []string{domain.RoleBuyer},
	}, nil)

	_, err = gate.Authorize(ctx, token, domain.RoleAdmin)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	principal, err := gate.Authorize(ctx, token, domain.RoleAdmin, domain.RoleBuyer)
	require.NoError(t, err)
	assert.Equal(t, "user-1", principal.User.ID)
}
