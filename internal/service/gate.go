package service

import (
	"context"
	"fmt"

	"github.com/FindNest-Estate/NestFind-sub000/internal/auth"
	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	"github.com/FindNest-Estate/NestFind-sub000/internal/repository"
	apperrors "github.com/FindNest-Estate/NestFind-sub000/pkg/errors"
)

// Principal is an authenticated caller: the live session plus the user
// record as read from the store at decision time.
type Principal struct {
	User    *domain.User
	Session *domain.Session
}

// AccessControlGate is the single authorization chokepoint. Token claims
// are treated as hints only: every decision re-reads the session and the
// user from the store, so revocations and status changes take effect on the
// next request regardless of what a token says.
type AccessControlGate struct {
	issuer   *auth.TokenIssuer
	registry *SessionRegistry
	users    repository.UserRepository
}

// NewAccessControlGate creates an access control gate.
func NewAccessControlGate(issuer *auth.TokenIssuer, registry *SessionRegistry, users repository.UserRepository) *AccessControlGate {
	return &AccessControlGate{issuer: issuer, registry: registry, users: users}
}

// Authorize validates a bearer token end to end. With no roles given, any
// active authenticated user passes; otherwise the user must hold at least
// one of the listed roles.
func (g *AccessControlGate) Authorize(ctx context.Context, rawToken string, roles ...string) (*Principal, error) {
	return g.authorize(ctx, rawToken, true, roles...)
}

// AuthorizeAnyStatus validates a bearer token without requiring an ACTIVE
// account. Self-service routes use it so a not-yet-verified user can still
// inspect and end the session login granted them. Roles are deliberately not
// accepted here: every privileged route also requires ACTIVE.
func (g *AccessControlGate) AuthorizeAnyStatus(ctx context.Context, rawToken string) (*Principal, error) {
	return g.authorize(ctx, rawToken, false)
}

func (g *AccessControlGate) authorize(ctx context.Context, rawToken string, requireActive bool, roles ...string) (*Principal, error) {
	claims, err := g.issuer.Decode(rawToken)
	if err != nil {
		return nil, err
	}

	session, err := g.registry.Verify(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != claims.Subject {
		// A token whose subject does not own its session is forged or
		// corrupted; never attribute it to either party.
		return nil, domain.TokenInvalid()
	}

	user, err := g.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user for authorization: %w", err)
	}
	if requireActive && user.Status != domain.StatusActive {
		return nil, apperrors.Forbidden("account is not active")
	}
	if len(roles) > 0 && !user.HasAnyRole(roles...) {
		return nil, apperrors.Forbidden("insufficient role")
	}

	return &Principal{User: user, Session: session}, nil
}
