// Package audit records every authentication decision as one structured log
// line. Credentials and codes never appear in an entry; outcomes, attempt
// counts, and network origins do.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Audited actions.
const (
	ActionLogin        = "login"
	ActionOTPGenerate  = "otp_generate"
	ActionOTPVerify    = "otp_verify"
	ActionTokenRefresh = "token_refresh"
	ActionLogout       = "logout"
	ActionRevokeAll    = "revoke_all_sessions"
)

// Entry is one authentication decision.
type Entry struct {
	Action      string
	Outcome     string
	UserID      string
	Email       string
	IP          string
	Attempts    int
	Sessions    int
	LockedUntil *time.Time
}

// Recorder writes audit entries through the structured logger.
type Recorder struct {
	logger *slog.Logger
}

// NewRecorder creates an audit recorder.
func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger.With(slog.String("component", "audit"))}
}

// Record writes one entry. Empty fields are omitted.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	attrs := []any{
		slog.String("action", e.Action),
		slog.String("outcome", e.Outcome),
	}
	if e.UserID != "" {
		attrs = append(attrs, slog.String("user_id", e.UserID))
	}
	if e.Email != "" {
		attrs = append(attrs, slog.String("email", e.Email))
	}
	if e.IP != "" {
		attrs = append(attrs, slog.String("ip", e.IP))
	}
	if e.Attempts > 0 {
		attrs = append(attrs, slog.Int("attempts", e.Attempts))
	}
	if e.Sessions > 0 {
		attrs = append(attrs, slog.Int("sessions", e.Sessions))
	}
	if e.LockedUntil != nil {
		attrs = append(attrs, slog.Time("locked_until", *e.LockedUntil))
	}

	r.logger.InfoContext(ctx, "auth decision", attrs...)
}
