package domain

import "time"

// Session is a server-side login session. It is the revocation anchor for
// access tokens and the storage home of the refresh token rotation chain.
// Sessions are never deleted by this service; revocation is permanent and
// rows stay behind as audit history until an external retention job prunes
// them.
type Session struct {
	ID string `json:"id"`

	UserID string `json:"user_id"`

	// RefreshTokenHash is the SHA-256 hex digest of the current refresh
	// token (the head of the rotation chain). Nil until the first token is
	// attached after login.
	RefreshTokenHash *string `json:"-"`

	// ParentTokenHash is the digest of the previous head. A presented token
	// matching this value is conclusive evidence of reuse.
	ParentTokenHash *string `json:"-"`

	// TokenFamilyID ties every rotation of one login together; the whole
	// family is revoked as a unit when reuse is detected.
	TokenFamilyID string `json:"token_family_id"`

	// FingerprintHash is a SHA-256 digest of the client identifying string.
	// Audit value only, never an enforcement key.
	FingerprintHash string `json:"-"`

	LastSeenIP string     `json:"last_seen_ip,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Revoked reports whether the session has been revoked.
func (s *Session) Revoked() bool {
	return s.RevokedAt != nil
}

// ExpiredAt reports whether the session's absolute expiry has passed at the
// given instant.
func (s *Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// LiveAt reports whether the session is usable: not revoked and not expired.
func (s *Session) LiveAt(now time.Time) bool {
	return !s.Revoked() && !s.ExpiredAt(now)
}
