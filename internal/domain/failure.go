package domain

import (
	"errors"
	"fmt"
	"time"
)

// FailureKind is the closed set of expected authentication failure outcomes.
type FailureKind string

// Authentication failure kinds.
const (
	FailureInvalidCredential    FailureKind = "INVALID_CREDENTIAL"
	FailureAccountLocked        FailureKind = "ACCOUNT_LOCKED"
	FailureTokenExpired         FailureKind = "TOKEN_EXPIRED"
	FailureTokenInvalid         FailureKind = "TOKEN_INVALID"
	FailureSessionRevoked       FailureKind = "SESSION_REVOKED"
	FailureOTPNotFound          FailureKind = "OTP_NOT_FOUND"
	FailureOTPExpired           FailureKind = "OTP_EXPIRED"
	FailureOTPInvalid           FailureKind = "OTP_INVALID"
	FailureOTPReuseBlocked      FailureKind = "OTP_REUSE_BLOCKED"
	FailureRefreshReuseDetected FailureKind = "REFRESH_REUSE_DETECTED"
)

// AuthFailure is an expected, locally handled authentication outcome. It is
// a tagged variant rather than an ad hoc shape: callers switch on Kind and
// the only payloads are the lockout timestamp and the remaining OTP attempt
// budget. It implements error so it travels through ordinary return paths,
// but it is never an infrastructure failure.
type AuthFailure struct {
	Kind FailureKind

	// LockedUntil is set for ACCOUNT_LOCKED. It is the only detail about a
	// lockout ever disclosed to the caller.
	LockedUntil *time.Time

	// AttemptsRemaining is set for OTP_INVALID.
	AttemptsRemaining *int
}

func (f *AuthFailure) Error() string {
	return fmt.Sprintf("auth failure: %s", f.Kind)
}

// Is makes AuthFailure values with the same Kind match under errors.Is.
func (f *AuthFailure) Is(target error) bool {
	var other *AuthFailure
	if errors.As(target, &other) {
		return f.Kind == other.Kind
	}
	return false
}

// AsAuthFailure extracts an AuthFailure from an error chain.
func AsAuthFailure(err error) (*AuthFailure, bool) {
	var f *AuthFailure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// InvalidCredential is the generic credential failure. It deliberately covers
// unknown identity, wrong password, suspended and declined accounts, and
// portal mismatches so that no outcome shape leaks account existence or state.
func InvalidCredential() *AuthFailure {
	return &AuthFailure{Kind: FailureInvalidCredential}
}

// AccountLocked signals that authentication is refused until the given time.
func AccountLocked(until time.Time) *AuthFailure {
	return &AuthFailure{Kind: FailureAccountLocked, LockedUntil: &until}
}

// TokenExpired signals an access token past its embedded expiry, or a session
// past its absolute expiry.
func TokenExpired() *AuthFailure {
	return &AuthFailure{Kind: FailureTokenExpired}
}

// TokenInvalid signals a token that fails signature, shape, or linkage checks.
func TokenInvalid() *AuthFailure {
	return &AuthFailure{Kind: FailureTokenInvalid}
}

// SessionRevoked signals a structurally valid token whose session has been
// revoked.
func SessionRevoked() *AuthFailure {
	return &AuthFailure{Kind: FailureSessionRevoked}
}

// OTPNotFound signals that no outstanding code exists for the user.
func OTPNotFound() *AuthFailure {
	return &AuthFailure{Kind: FailureOTPNotFound}
}

// OTPExpired signals that the newest code's validity window has passed.
func OTPExpired() *AuthFailure {
	return &AuthFailure{Kind: FailureOTPExpired}
}

// OTPInvalid signals a wrong code, with the remaining guess budget.
func OTPInvalid(attemptsRemaining int) *AuthFailure {
	return &AuthFailure{Kind: FailureOTPInvalid, AttemptsRemaining: &attemptsRemaining}
}

// OTPReuseBlocked signals an attempt to redeem an already-consumed code.
func OTPReuseBlocked() *AuthFailure {
	return &AuthFailure{Kind: FailureOTPReuseBlocked}
}

// RefreshReuseDetected signals presentation of a superseded refresh token.
// By the time the caller sees it, the entire token family has been revoked.
func RefreshReuseDetected() *AuthFailure {
	return &AuthFailure{Kind: FailureRefreshReuseDetected}
}
