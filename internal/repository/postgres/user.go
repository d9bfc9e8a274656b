package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/database"
	apperrors "github.com/FindNest-Estate/NestFind-sub000/pkg/errors"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, status, roles, login_attempts, login_locked_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		u.ID,
		u.Email,
		u.PasswordHash,
		u.FullName,
		string(u.Status),
		u.Roles,
		u.LoginAttempts,
		u.LoginLockedUntil,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, password_hash, full_name, status, roles, login_attempts, login_locked_until, created_at, updated_at
		FROM users
		WHERE id = $1`

	return r.scanUser(ctx, query, id)
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, password_hash, full_name, status, roles, login_attempts, login_locked_until, created_at, updated_at
		FROM users
		WHERE email = $1`

	return r.scanUser(ctx, query, email)
}

// RecordLoginFailure counts one failed attempt while holding the user's row
// lock, so two concurrent failures can never both observe the same counter.
// An already-active lock short-circuits without counting. Crossing the
// threshold imposes the lock and resets the counter, restoring a full budget
// once the lock is served.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, userID string, threshold int, lockDuration time.Duration) (*domain.LoginPenalty, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin login failure tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var attempts int
	var lockedUntil *time.Time
	err = tx.QueryRow(ctx, `
		SELECT login_attempts, login_locked_until
		FROM users
		WHERE id = $1
		FOR UPDATE`, userID).Scan(&attempts, &lockedUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("lock user row: %w", err)
	}

	now := time.Now().UTC()
	if lockedUntil != nil && now.Before(*lockedUntil) {
		until := lockedUntil.UTC()
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit login failure tx: %w", err)
		}
		return &domain.LoginPenalty{Attempts: attempts, LockedUntil: &until}, nil
	}

	attempts++
	var nextLock *time.Time
	if attempts >= threshold {
		until := now.Add(lockDuration)
		nextLock = &until
		attempts = 0
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET login_attempts = $2, login_locked_until = $3, updated_at = $4
		WHERE id = $1`, userID, attempts, nextLock, now)
	if err != nil {
		return nil, fmt.Errorf("update login attempts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit login failure tx: %w", err)
	}

	return &domain.LoginPenalty{Attempts: attempts, LockedUntil: nextLock}, nil
}

// RecordLoginSuccess resets the attempt counter and clears the lock under the
// user's row lock. If a lock was imposed concurrently, it wins: the returned
// timestamp is non-nil and no reset happens.
func (r *UserRepository) RecordLoginSuccess(ctx context.Context, userID string) (*time.Time, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin login success tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var lockedUntil *time.Time
	err = tx.QueryRow(ctx, `
		SELECT login_locked_until
		FROM users
		WHERE id = $1
		FOR UPDATE`, userID).Scan(&lockedUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("lock user row: %w", err)
	}

	now := time.Now().UTC()
	if lockedUntil != nil && now.Before(*lockedUntil) {
		until := lockedUntil.UTC()
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit login success tx: %w", err)
		}
		return &until, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET login_attempts = 0, login_locked_until = NULL, updated_at = $2
		WHERE id = $1`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("reset login attempts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit login success tx: %w", err)
	}

	return nil, nil
}

// scanUser is a helper that executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User
	var status string

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&status,
		&u.Roles,
		&u.LoginAttempts,
		&u.LoginLockedUntil,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.Status = domain.Status(status)
	return &u, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
