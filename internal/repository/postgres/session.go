package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/database"
	apperrors "github.com/FindNest-Estate/NestFind-sub000/pkg/errors"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool database.DBTX
}

// NewSessionRepository creates a new PostgreSQL-backed session repository.
func NewSessionRepository(pool database.DBTX) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, refresh_token_hash, parent_token_hash, token_family_id, fingerprint_hash, last_seen_ip, revoked_at, expires_at, created_at, updated_at`

// Create inserts a new session with no refresh head attached.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.RefreshTokenHash,
		s.ParentTokenHash,
		s.TokenFamilyID,
		s.FingerprintHash,
		s.LastSeenIP,
		s.RevokedAt,
		s.ExpiresAt,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return s, nil
}

// AttachRefreshHead sets the session's first refresh token hash. The guard in
// the WHERE clause makes it a one-shot: a session that already has a head, or
// is no longer live, never gets a new first token this way.
func (r *SessionRepository) AttachRefreshHead(ctx context.Context, sessionID, tokenHash string) error {
	query := `
		UPDATE sessions
		SET refresh_token_hash = $2, updated_at = $3
		WHERE id = $1
		  AND refresh_token_hash IS NULL
		  AND revoked_at IS NULL
		  AND expires_at > $3`

	ct, err := r.pool.Exec(ctx, query, sessionID, tokenHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("attach refresh head: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}

	return nil
}

// Rotate advances the rotation chain inside one transaction. The three
// resolutions of the presented hash:
//   - current head of a live session: the head moves to parent_token_hash and
//     newHash becomes the head;
//   - parent of any session: conclusive reuse, the entire token family is
//     revoked and the revocation commits even though the rotation fails;
//   - neither: unknown token, nothing written.
func (r *SessionRepository) Rotate(ctx context.Context, presentedHash, newHash, ip string) (*domain.Rotation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin rotation tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()

	var (
		sessionID string
		userID    string
		familyID  string
		revokedAt *time.Time
		expiresAt time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, token_family_id, revoked_at, expires_at
		FROM sessions
		WHERE refresh_token_hash = $1
		FOR UPDATE`, presentedHash).Scan(&sessionID, &userID, &familyID, &revokedAt, &expiresAt)

	switch {
	case err == nil:
		if revokedAt != nil {
			if err := tx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("commit rotation tx: %w", err)
			}
			return &domain.Rotation{Outcome: domain.RotationSessionRevoked, SessionID: sessionID, UserID: userID, TokenFamilyID: familyID}, nil
		}
		if now.After(expiresAt) {
			if err := tx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("commit rotation tx: %w", err)
			}
			return &domain.Rotation{Outcome: domain.RotationSessionExpired, SessionID: sessionID, UserID: userID, TokenFamilyID: familyID}, nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE sessions
			SET parent_token_hash = refresh_token_hash,
			    refresh_token_hash = $2,
			    last_seen_ip = $3,
			    updated_at = $4
			WHERE id = $1`, sessionID, newHash, ip, now)
		if err != nil {
			return nil, fmt.Errorf("advance rotation head: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit rotation tx: %w", err)
		}
		return &domain.Rotation{Outcome: domain.RotationOK, SessionID: sessionID, UserID: userID, TokenFamilyID: familyID}, nil

	case errors.Is(err, pgx.ErrNoRows):
		// Not a current head anywhere. A parent match means the presented
		// token was valid once and has been superseded: theft or replay.
		err = tx.QueryRow(ctx, `
			SELECT id, user_id, token_family_id
			FROM sessions
			WHERE parent_token_hash = $1
			FOR UPDATE`, presentedHash).Scan(&sessionID, &userID, &familyID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				if err := tx.Commit(ctx); err != nil {
					return nil, fmt.Errorf("commit rotation tx: %w", err)
				}
				return &domain.Rotation{Outcome: domain.RotationUnknown}, nil
			}
			return nil, fmt.Errorf("resolve superseded token: %w", err)
		}

		ct, err := tx.Exec(ctx, `
			UPDATE sessions
			SET revoked_at = $2, updated_at = $2
			WHERE token_family_id = $1 AND revoked_at IS NULL`, familyID, now)
		if err != nil {
			return nil, fmt.Errorf("revoke token family: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit rotation tx: %w", err)
		}
		return &domain.Rotation{
			Outcome:         domain.RotationReused,
			SessionID:       sessionID,
			UserID:          userID,
			TokenFamilyID:   familyID,
			RevokedSessions: int(ct.RowsAffected()),
		}, nil

	default:
		return nil, fmt.Errorf("resolve presented token: %w", err)
	}
}

// Revoke sets revoked_at if not already set. Idempotent: revoking twice, or
// revoking an already-expired session, is not an error and never un-revokes.
func (r *SessionRepository) Revoke(ctx context.Context, sessionID string) error {
	query := `
		UPDATE sessions
		SET revoked_at = $2, updated_at = $2
		WHERE id = $1 AND revoked_at IS NULL`

	_, err := r.pool.Exec(ctx, query, sessionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

// RevokeAllForUser revokes every non-revoked session of the user in one
// statement and returns the count affected. Expired rows are included so
// each one carries an explicit revocation mark and the reported count
// covers the full set.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	query := `
		UPDATE sessions
		SET revoked_at = $2, updated_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL`

	ct, err := r.pool.Exec(ctx, query, userID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions for user: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// ListForUser returns a page of the user's sessions, newest first, with the
// total count.
func (r *SessionRepository) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Session, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sessions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, total, nil
}

// scanSession scans one full session row.
func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.RefreshTokenHash,
		&s.ParentTokenHash,
		&s.TokenFamilyID,
		&s.FingerprintHash,
		&s.LastSeenIP,
		&s.RevokedAt,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
