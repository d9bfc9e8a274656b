package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	"github.com/FindNest-Estate/NestFind-sub000/internal/repository"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/database"
	apperrors "github.com/FindNest-Estate/NestFind-sub000/pkg/errors"
)

// OTPRepository implements repository.OTPRepository using PostgreSQL.
type OTPRepository struct {
	pool database.DBTX
}

// NewOTPRepository creates a new PostgreSQL-backed OTP repository.
func NewOTPRepository(pool database.DBTX) *OTPRepository {
	return &OTPRepository{pool: pool}
}

// Create inserts a new OTP record. Each send is a new row; the verifier only
// ever consults the newest one.
func (r *OTPRepository) Create(ctx context.Context, o *domain.OTPRecord) error {
	query := `
		INSERT INTO email_otps (id, user_id, otp_hash, expires_at, attempts, consumed_at, consumed_by_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		o.ID,
		o.UserID,
		o.OTPHash,
		o.ExpiresAt,
		o.Attempts,
		o.ConsumedAt,
		o.ConsumedByIP,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert otp record: %w", err)
	}

	return nil
}

// CountRecentSends returns how many codes were issued to the user since the
// given instant.
func (r *OTPRepository) CountRecentSends(ctx context.Context, userID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM email_otps
		WHERE user_id = $1 AND created_at >= $2`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count recent otp sends: %w", err)
	}

	return count, nil
}

// Redeem runs the whole verification decision in one transaction. The user
// row is locked first (it carries the shared lockout flag), then the newest
// OTP row. Consumption and the post-verification status transition happen in
// the same transaction, so a crash can never leave a "successful" redemption
// without its status change or vice versa. Penalty writes on the failure
// paths commit as well.
func (r *OTPRepository) Redeem(ctx context.Context, input repository.RedeemInput) (*domain.OTPRedemption, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin otp redeem tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	var roles []string
	var lockedUntil *time.Time
	err = tx.QueryRow(ctx, `
		SELECT status, roles, login_locked_until
		FROM users
		WHERE id = $1
		FOR UPDATE`, input.UserID).Scan(&status, &roles, &lockedUntil)
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
			return nil, fmt.Errorf("commit otp redeem tx: %w", err)
		}
		return &domain.OTPRedemption{Outcome: domain.RedeemLocked, LockedUntil: &until}, nil
	}

	var rec domain.OTPRecord
	err = tx.QueryRow(ctx, `
		SELECT id, otp_hash, expires_at, attempts, consumed_at
		FROM email_otps
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE`, input.UserID).Scan(&rec.ID, &rec.OTPHash, &rec.ExpiresAt, &rec.Attempts, &rec.ConsumedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if err := tx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("commit otp redeem tx: %w", err)
			}
			return &domain.OTPRedemption{Outcome: domain.RedeemNotFound}, nil
		}
		return nil, fmt.Errorf("lock otp row: %w", err)
	}

	if rec.Consumed() {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit otp redeem tx: %w", err)
		}
		return &domain.OTPRedemption{Outcome: domain.RedeemReuseBlocked, RecordID: rec.ID}, nil
	}

	if rec.ExpiredAt(now) {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit otp redeem tx: %w", err)
		}
		return &domain.OTPRedemption{Outcome: domain.RedeemExpired, RecordID: rec.ID}, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.OTPHash), []byte(input.Code)) != nil {
		rec.Attempts++
		_, err = tx.Exec(ctx, `
			UPDATE email_otps SET attempts = $2 WHERE id = $1`, rec.ID, rec.Attempts)
		if err != nil {
			return nil, fmt.Errorf("count otp attempt: %w", err)
		}

		if rec.Attempts >= input.MaxAttempts {
			until := now.Add(input.LockDuration)
			_, err = tx.Exec(ctx, `
				UPDATE users
				SET login_locked_until = $2, login_attempts = 0, updated_at = $3
				WHERE id = $1`, input.UserID, until, now)
			if err != nil {
				return nil, fmt.Errorf("impose otp guess lock: %w", err)
			}
			if err := tx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("commit otp redeem tx: %w", err)
			}
			return &domain.OTPRedemption{Outcome: domain.RedeemLocked, RecordID: rec.ID, LockedUntil: &until}, nil
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit otp redeem tx: %w", err)
		}
		return &domain.OTPRedemption{
			Outcome:           domain.RedeemMismatch,
			RecordID:          rec.ID,
			AttemptsRemaining: input.MaxAttempts - rec.Attempts,
		}, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE email_otps
		SET consumed_at = $2, consumed_by_ip = $3
		WHERE id = $1`, rec.ID, now, input.IP)
	if err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}

	newStatus := domain.Status(status)
	if newStatus == domain.StatusPendingVerification {
		newStatus = domain.StatusAfterVerification(roles)
		_, err = tx.Exec(ctx, `
			UPDATE users SET status = $2, updated_at = $3 WHERE id = $1`,
			input.UserID, string(newStatus), now)
		if err != nil {
			return nil, fmt.Errorf("apply verification status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit otp redeem tx: %w", err)
	}

	return &domain.OTPRedemption{Outcome: domain.RedeemOK, RecordID: rec.ID, NewStatus: newStatus}, nil
}
