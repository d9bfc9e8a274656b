package repository

import (
	"context"
	"time"

	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
// RecordLoginFailure and RecordLoginSuccess are atomic read-modify-writes:
// the implementation must hold an exclusive lock on the user row for the
// duration of the decision so concurrent attempts cannot lose counter
// updates or race past a lock.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// RecordLoginFailure counts one failed attempt under the user's row
	// lock. An already-active lock is returned without counting; crossing
	// the threshold imposes a new lock and resets the counter.
	RecordLoginFailure(ctx context.Context, userID string, threshold int, lockDuration time.Duration) (*domain.LoginPenalty, error)

	// RecordLoginSuccess resets the attempt counter and clears the lock
	// under the user's row lock. A non-nil timestamp means a concurrently
	// imposed lock is still in force and wins over the successful check.
	RecordLoginSuccess(ctx context.Context, userID string) (*time.Time, error)
}

// RedeemInput carries the parameters of one atomic OTP redemption.
type RedeemInput struct {
	UserID string

	// Code is the plaintext code as presented; it is compared against the
	// stored hash inside the transaction and never persisted.
	Code string

	IP string

	// MaxAttempts is the wrong-guess budget; reaching it locks the account.
	MaxAttempts int

	// LockDuration is the account lock imposed when the budget is exhausted.
	LockDuration time.Duration
}

// OTPRepository defines the interface for one-time code persistence.
type OTPRepository interface {
	// Create inserts a new OTP record (each send is a new row).
	Create(ctx context.Context, record *domain.OTPRecord) error

	// CountRecentSends returns how many codes were issued to the user since
	// the given instant. Used for send throttling.
	CountRecentSends(ctx context.Context, userID string, since time.Time) (int, error)

	// Redeem runs the whole verification decision in one transaction: lock
	// the user row, lock the newest OTP row, compare, and either consume the
	// code plus apply the status transition, or count the failure. Penalty
	// writes commit even when the outcome is a failure.
	Redeem(ctx context.Context, input RedeemInput) (*domain.OTPRedemption, error)
}

// SessionRepository defines the interface for session persistence. Rotate is
// the reuse-detection core: it must resolve head match, parent match, and no
// match inside one transaction holding the session row lock.
type SessionRepository interface {
	// Create inserts a new session with no refresh head attached.
	Create(ctx context.Context, session *domain.Session) error

	// GetByID retrieves a session by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Session, error)

	// AttachRefreshHead sets the session's first refresh token hash. It only
	// succeeds while the session is live and has no head yet.
	AttachRefreshHead(ctx context.Context, sessionID, tokenHash string) error

	// Rotate advances the rotation chain: on a current-head match the old
	// head becomes the parent and newHash the head; on a parent match the
	// entire token family is revoked (committed even though the call is a
	// failure); otherwise the token is unknown.
	Rotate(ctx context.Context, presentedHash, newHash, ip string) (*domain.Rotation, error)

	// Revoke sets revoked_at if not already set. Idempotent, never
	// un-revokes.
	Revoke(ctx context.Context, sessionID string) error

	// RevokeAllForUser revokes every live session of the user in one
	// statement and returns the count affected.
	RevokeAllForUser(ctx context.Context, userID string) (int, error)

	// ListForUser returns a page of the user's sessions, newest first,
	// along with the total count.
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Session, int, error)
}
