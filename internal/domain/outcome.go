package domain

import "time"

// LoginPenalty is the result of recording a failed login attempt under the
// user's row lock.
type LoginPenalty struct {
	// Attempts is the consecutive failure count after this attempt. Zero when
	// a lock was imposed, since crossing the threshold resets the counter.
	Attempts int

	// LockedUntil is set when the account is locked: either this failure
	// crossed the threshold, or a lock was already in force.
	LockedUntil *time.Time
}

// Locked reports whether the account is locked after this attempt.
func (p *LoginPenalty) Locked() bool {
	return p.LockedUntil != nil
}

// RedeemOutcome tags the result of an atomic OTP redemption.
type RedeemOutcome string

// OTP redemption outcomes.
const (
	RedeemOK           RedeemOutcome = "OK"
	RedeemLocked       RedeemOutcome = "LOCKED"
	RedeemNotFound     RedeemOutcome = "NOT_FOUND"
	RedeemReuseBlocked RedeemOutcome = "REUSE_BLOCKED"
	RedeemExpired      RedeemOutcome = "EXPIRED"
	RedeemMismatch     RedeemOutcome = "MISMATCH"
)

// OTPRedemption is the result of one OTP verification transaction. The
// repository commits it as a unit: consumption, attempt counting, lockouts,
// and the post-verification status transition are never split.
type OTPRedemption struct {
	Outcome  RedeemOutcome
	RecordID string

	// AttemptsRemaining is set for RedeemMismatch.
	AttemptsRemaining int

	// LockedUntil is set for RedeemLocked.
	LockedUntil *time.Time

	// NewStatus is set for RedeemOK: the status the user transitioned to.
	NewStatus Status
}

// RotationOutcome tags the result of a refresh token rotation transaction.
type RotationOutcome string

// Rotation outcomes.
const (
	// RotationOK: the presented token was the current head; a new head is in
	// place.
	RotationOK RotationOutcome = "OK"

	// RotationReused: the presented token matched a superseded head; the
	// whole token family has been revoked in the same transaction.
	RotationReused RotationOutcome = "REUSED"

	// RotationSessionRevoked: the head matched but the session is revoked.
	RotationSessionRevoked RotationOutcome = "SESSION_REVOKED"

	// RotationSessionExpired: the head matched but the session has expired.
	RotationSessionExpired RotationOutcome = "SESSION_EXPIRED"

	// RotationUnknown: the presented token matched nothing.
	RotationUnknown RotationOutcome = "UNKNOWN"
)

// Rotation is the result of one refresh rotation transaction.
type Rotation struct {
	Outcome       RotationOutcome
	SessionID     string
	UserID        string
	TokenFamilyID string

	// RevokedSessions is the number of family sessions revoked on the
	// RotationReused path.
	RevokedSessions int
}
