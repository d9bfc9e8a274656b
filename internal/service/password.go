package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/FindNest-Estate/NestFind-sub000/internal/audit"
	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	"github.com/FindNest-Estate/NestFind-sub000/internal/event"
	"github.com/FindNest-Estate/NestFind-sub000/internal/repository"
	apperrors "github.com/FindNest-Estate/NestFind-sub000/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// Lockout policy for the password path.
const (
	loginAttemptLimit = 5
	loginLockDuration = 15 * time.Minute
)

// enumerationGuardHash is a real bcrypt hash burned against when no user
// matches, so the unknown-identity path costs the same as a wrong password.
var enumerationGuardHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("nestfind-enumeration-guard"), bcryptCost)
	if err != nil {
		panic(fmt.Sprintf("generate enumeration guard hash: %v", err))
	}
	return h
}()

// PasswordAuthenticator verifies credentials with brute-force lockout. All
// counter updates run as atomic read-modify-writes under the user's row
// lock; this type holds no in-process state.
type PasswordAuthenticator struct {
	users    repository.UserRepository
	producer *event.Producer
	audit    *audit.Recorder
	logger   *slog.Logger
}

// NewPasswordAuthenticator creates a password authenticator.
func NewPasswordAuthenticator(
	users repository.UserRepository,
	producer *event.Producer,
	auditor *audit.Recorder,
	logger *slog.Logger,
) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		users:    users,
		producer: producer,
		audit:    auditor,
		logger:   logger,
	}
}

// AuthenticateInput holds the parameters for a login attempt.
type AuthenticateInput struct {
	Email    string
	Password string
	IP       string
	Portal   string
}

// Authenticate verifies the credential. Unknown identity, wrong password,
// suspended/declined accounts, and portal mismatches all return the same
// generic InvalidCredential outcome; only the lockout path discloses
// anything more, and then only the unlock timestamp.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, input AuthenticateInput) (*domain.User, error) {
	user, err := a.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Burn a comparison so this path costs the same as a mismatch.
			_ = bcrypt.CompareHashAndPassword(enumerationGuardHash, []byte(input.Password))
			a.audit.Record(ctx, audit.Entry{
				Action: audit.ActionLogin, Outcome: "unknown_identity",
				Email: input.Email, IP: input.IP,
			})
			return nil, domain.InvalidCredential()
		}
		return nil, fmt.Errorf("get user for login: %w", err)
	}

	now := time.Now().UTC()
	if user.LockedAt(now) {
		a.audit.Record(ctx, audit.Entry{
			Action: audit.ActionLogin, Outcome: "account_locked",
			UserID: user.ID, IP: input.IP, LockedUntil: user.LoginLockedUntil,
		})
		return nil, domain.AccountLocked(*user.LoginLockedUntil)
	}

	if user.Status == domain.StatusSuspended || user.Status == domain.StatusDeclined {
		a.audit.Record(ctx, audit.Entry{
			Action: audit.ActionLogin, Outcome: "blocked_status",
			UserID: user.ID, IP: input.IP,
		})
		return nil, domain.InvalidCredential()
	}

	if input.Portal != "" && !user.MayUsePortal(input.Portal) {
		a.audit.Record(ctx, audit.Entry{
			Action: audit.ActionLogin, Outcome: "portal_mismatch",
			UserID: user.ID, IP: input.IP,
		})
		return nil, domain.InvalidCredential()
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		return nil, a.recordFailure(ctx, user, input.IP)
	}

	lockedUntil, err := a.users.RecordLoginSuccess(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("record login success: %w", err)
	}
	if lockedUntil != nil {
		// A concurrently imposed lock wins even over a correct password.
		a.audit.Record(ctx, audit.Entry{
			Action: audit.ActionLogin, Outcome: "account_locked",
			UserID: user.ID, IP: input.IP, LockedUntil: lockedUntil,
		})
		return nil, domain.AccountLocked(*lockedUntil)
	}

	a.audit.Record(ctx, audit.Entry{
		Action: audit.ActionLogin, Outcome: "success",
		UserID: user.ID, IP: input.IP,
	})

	return user, nil
}

// recordFailure counts the failed attempt and maps the penalty to an outcome.
func (a *PasswordAuthenticator) recordFailure(ctx context.Context, user *domain.User, ip string) error {
	penalty, err := a.users.RecordLoginFailure(ctx, user.ID, loginAttemptLimit, loginLockDuration)
	if err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}

	if penalty.Locked() {
		a.audit.Record(ctx, audit.Entry{
			Action: audit.ActionLogin, Outcome: "account_locked",
			UserID: user.ID, IP: ip, Attempts: loginAttemptLimit, LockedUntil: penalty.LockedUntil,
		})
		if err := a.producer.PublishLoginLocked(ctx, user.ID, *penalty.LockedUntil, ip); err != nil {
			a.logger.ErrorContext(ctx, "failed to publish login_locked event",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return domain.AccountLocked(*penalty.LockedUntil)
	}

	a.audit.Record(ctx, audit.Entry{
		Action: audit.ActionLogin, Outcome: "invalid_credential",
		UserID: user.ID, IP: ip, Attempts: penalty.Attempts,
	})
	return domain.InvalidCredential()
}
