package mailer

import (
	"context"
	"log/slog"
)

// LogSender is the development sender: it logs that a code was issued
// without ever logging the code itself.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a log-only sender for development environments.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendOTP records the delivery. The code is withheld from the log line.
func (s *LogSender) SendOTP(ctx context.Context, email, code string) error {
	s.logger.InfoContext(ctx, "otp email suppressed in development",
		slog.String("email", email),
		slog.Int("code_length", len(code)),
	)
	return nil
}
