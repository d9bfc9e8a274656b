package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FindNest-Estate/NestFind-sub000/internal/audit"
	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	"github.com/FindNest-Estate/NestFind-sub000/internal/event"
	"github.com/FindNest-Estate/NestFind-sub000/internal/notify"
	"github.com/FindNest-Estate/NestFind-sub000/internal/repository"
	apperrors "github.com/FindNest-Estate/NestFind-sub000/pkg/errors"
)

// Session lifetimes by role class. Elevated roles get the shorter leash.
const (
	sessionTTLStandard = 168 * time.Hour
	sessionTTLElevated = 24 * time.Hour
)

// SessionRegistry owns the server-side session records that access tokens
// are bound to. A token is only as alive as its session row.
type SessionRegistry struct {
	sessions repository.SessionRepository
	producer *event.Producer
	hub      *notify.Hub
	audit    *audit.Recorder
	logger   *slog.Logger
}

// NewSessionRegistry creates a session registry.
func NewSessionRegistry(
	sessions repository.SessionRepository,
	producer *event.Producer,
	hub *notify.Hub,
	auditor *audit.Recorder,
	logger *slog.Logger,
) *SessionRegistry {
	return &SessionRegistry{
		sessions: sessions,
		producer: producer,
		hub:      hub,
		audit:    auditor,
		logger:   logger,
	}
}

// CreateInput holds the parameters for opening a new session.
type CreateInput struct {
	User        *domain.User
	Fingerprint string
	IP          string
}

// Create opens a fresh session for the user with a new token family. The
// session carries no refresh head yet; the rotator attaches one.
func (r *SessionRegistry) Create(ctx context.Context, input CreateInput) (*domain.Session, error) {
	ttl := sessionTTLStandard
	if input.User.HasElevatedRole() {
		ttl = sessionTTLElevated
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:              uuid.New().String(),
		UserID:          input.User.ID,
		TokenFamilyID:   uuid.New().String(),
		FingerprintHash: HashFingerprint(input.Fingerprint),
		LastSeenIP:      input.IP,
		ExpiresAt:       now.Add(ttl),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Verify checks that a session referenced by a token is still live. The
// session row is the source of truth: a missing or revoked row invalidates
// an otherwise well-formed token.
func (r *SessionRegistry) Verify(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := r.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.TokenInvalid()
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.Revoked() {
		return nil, domain.SessionRevoked()
	}
	if session.ExpiredAt(time.Now().UTC()) {
		return nil, domain.TokenExpired()
	}
	return session, nil
}

// Revoke ends a single session. Idempotent; the connected client is
// notified over its live channel.
func (r *SessionRegistry) Revoke(ctx context.Context, sessionID, userID string) error {
	if err := r.sessions.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	r.audit.Record(ctx, audit.Entry{
		Action: audit.ActionLogout, Outcome: "success", UserID: userID,
	})
	if err := r.producer.PublishSessionRevoked(ctx, sessionID, userID); err != nil {
		r.logger.ErrorContext(ctx, "failed to publish session_revoked event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
	r.hub.Notify(userID, notify.NewEvent(notify.EventSessionRevoked, map[string]string{
		"session_id": sessionID,
	}))
	return nil
}

// RevokeAllForUser ends every live session of the user and returns how many
// were revoked.
func (r *SessionRegistry) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	revoked, err := r.sessions.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}

	r.audit.Record(ctx, audit.Entry{
		Action: audit.ActionRevokeAll, Outcome: "success", UserID: userID, Sessions: revoked,
	})
	if err := r.producer.PublishSessionsRevokedAll(ctx, userID, revoked); err != nil {
		r.logger.ErrorContext(ctx, "failed to publish sessions_revoked_all event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	r.hub.Notify(userID, notify.NewEvent(notify.EventAllSessionsRevoked, map[string]int{
		"revoked": revoked,
	}))
	return revoked, nil
}

// ListForUser returns a page of the user's sessions, newest first.
func (r *SessionRegistry) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Session, int, error) {
	sessions, total, err := r.sessions.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, total, nil
}

// HashFingerprint digests a client identifying string for storage.
func HashFingerprint(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:])
}
