package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPConfig holds the SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers OTP emails over SMTP.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates an SMTP-backed sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// SendOTP sends the verification code. gomail has no context support, so
// cancellation is checked before dialing; the send itself is bounded by the
// dialer's own timeouts.
func (s *SMTPSender) SendOTP(ctx context.Context, email, code string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Your NestFind verification code")

	body := fmt.Sprintf(`
		<h3>Verify your email address</h3>
		<p>Your verification code is: <strong>%s</strong></p>
		<p>It expires in 10 minutes. If you did not request it, you can ignore this email.</p>
	`, code)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}

	return nil
}
