package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/FindNest-Estate/NestFind-sub000/internal/audit"
	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	"github.com/FindNest-Estate/NestFind-sub000/internal/event"
	"github.com/FindNest-Estate/NestFind-sub000/internal/notify"
	"github.com/FindNest-Estate/NestFind-sub000/internal/repository"
)

// refreshTokenBytes is the entropy of an opaque refresh token.
const refreshTokenBytes = 32

// RefreshTokenRotator manages the single-use refresh token chain of each
// session. Tokens are opaque random strings; only their SHA-256 digests are
// stored. Presenting a superseded token burns the whole family.
type RefreshTokenRotator struct {
	sessions repository.SessionRepository
	producer *event.Producer
	hub      *notify.Hub
	audit    *audit.Recorder
	logger   *slog.Logger
}

// NewRefreshTokenRotator creates a refresh token rotator.
func NewRefreshTokenRotator(
	sessions repository.SessionRepository,
	producer *event.Producer,
	hub *notify.Hub,
	auditor *audit.Recorder,
	logger *slog.Logger,
) *RefreshTokenRotator {
	return &RefreshTokenRotator{
		sessions: sessions,
		producer: producer,
		hub:      hub,
		audit:    auditor,
		logger:   logger,
	}
}

// Issue mints the first refresh token for a freshly created session and
// attaches its digest as the chain head. The plaintext is returned once and
// never stored.
func (r *RefreshTokenRotator) Issue(ctx context.Context, sessionID string) (string, error) {
	token, err := generateRefreshToken()
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	if err := r.sessions.AttachRefreshHead(ctx, sessionID, HashRefreshToken(token)); err != nil {
		return "", fmt.Errorf("attach refresh head: %w", err)
	}
	return token, nil
}

// RotateResult is the product of a successful rotation.
type RotateResult struct {
	SessionID string
	UserID    string

	// RefreshToken is the new chain head, returned to the client exactly
	// once.
	RefreshToken string
}

// Rotate exchanges a presented refresh token for a new one. Exactly one
// live token exists per session at any time; a replayed predecessor is
// treated as theft evidence and revokes the whole token family.
func (r *RefreshTokenRotator) Rotate(ctx context.Context, presented, ip string) (*RotateResult, error) {
	next, err := generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	rotation, err := r.sessions.Rotate(ctx, HashRefreshToken(presented), HashRefreshToken(next), ip)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	switch rotation.Outcome {
	case domain.RotationOK:
		r.audit.Record(ctx, audit.Entry{
			Action: audit.ActionTokenRefresh, Outcome: "success",
			UserID: rotation.UserID, IP: ip,
		})
		return &RotateResult{
			SessionID:    rotation.SessionID,
			UserID:       rotation.UserID,
			RefreshToken: next,
		}, nil

	case domain.RotationReused:
		r.audit.Record(ctx, audit.Entry{
			Action: audit.ActionTokenRefresh, Outcome: "reuse_detected",
			UserID: rotation.UserID, IP: ip, Sessions: rotation.RevokedSessions,
		})
		if err := r.producer.PublishRefreshReuseDetected(ctx, event.RefreshReuseData{
			UserID:          rotation.UserID,
			TokenFamilyID:   rotation.TokenFamilyID,
			RevokedSessions: rotation.RevokedSessions,
			IP:              ip,
		}); err != nil {
			r.logger.ErrorContext(ctx, "failed to publish refresh_reuse_detected event",
				slog.String("user_id", rotation.UserID),
				slog.String("error", err.Error()),
			)
		}
		r.hub.Notify(rotation.UserID, notify.NewEvent(notify.EventRefreshReuse, map[string]any{
			"token_family_id":  rotation.TokenFamilyID,
			"revoked_sessions": rotation.RevokedSessions,
		}))
		return nil, domain.RefreshReuseDetected()

	case domain.RotationSessionRevoked:
		r.audit.Record(ctx, audit.Entry{
			Action: audit.ActionTokenRefresh, Outcome: "session_revoked",
			UserID: rotation.UserID, IP: ip,
		})
		return nil, domain.SessionRevoked()

	case domain.RotationSessionExpired:
		r.audit.Record(ctx, audit.Entry{
			Action: audit.ActionTokenRefresh, Outcome: "session_expired",
			UserID: rotation.UserID, IP: ip,
		})
		return nil, domain.TokenExpired()

	case domain.RotationUnknown:
		r.audit.Record(ctx, audit.Entry{
			Action: audit.ActionTokenRefresh, Outcome: "unknown_token", IP: ip,
		})
		return nil, domain.TokenInvalid()

	default:
		return nil, fmt.Errorf("unexpected rotation outcome %q", rotation.Outcome)
	}
}

// generateRefreshToken mints an opaque token from the system CSPRNG.
func generateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashRefreshToken digests a refresh token for storage and lookup.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
