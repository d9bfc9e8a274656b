package http

import (
	"log/slog"
	"net/http"

	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/httputil"
)

// writeAuthFailure maps an AuthFailure kind to its HTTP rendering. Lockouts
// disclose only the unlock timestamp; credential failures disclose nothing.
// Any other error falls through to the shared error writer.
func writeAuthFailure(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	failure, ok := domain.AsAuthFailure(err)
	if !ok {
		httputil.WriteError(w, r, err, fallback)
		return
	}

	var status int
	var message string
	switch failure.Kind {
	case domain.FailureInvalidCredential:
		status, message = http.StatusUnauthorized, "invalid email or password"
	case domain.FailureAccountLocked:
		status, message = http.StatusLocked, "account temporarily locked"
	case domain.FailureTokenExpired:
		status, message = http.StatusUnauthorized, "token expired"
	case domain.FailureTokenInvalid:
		status, message = http.StatusUnauthorized, "token invalid"
	case domain.FailureSessionRevoked:
		status, message = http.StatusUnauthorized, "session revoked"
	case domain.FailureRefreshReuseDetected:
		status, message = http.StatusUnauthorized, "refresh token reuse detected, all sessions revoked"
	case domain.FailureOTPNotFound:
		status, message = http.StatusNotFound, "no verification code outstanding"
	case domain.FailureOTPExpired:
		status, message = http.StatusBadRequest, "verification code expired"
	case domain.FailureOTPInvalid:
		status, message = http.StatusBadRequest, "verification code incorrect"
	case domain.FailureOTPReuseBlocked:
		status, message = http.StatusConflict, "verification code already used"
	default:
		status, message = http.StatusUnauthorized, "authentication failed"
	}

	httputil.WriteJSON(w, status, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:              string(failure.Kind),
			Message:           message,
			LockedUntil:       failure.LockedUntil,
			AttemptsRemaining: failure.AttemptsRemaining,
		},
	})
}
