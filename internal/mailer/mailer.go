// Package mailer delivers one-time verification codes by email. The auth
// core only depends on the Sender capability; SMTP wiring stays here.
package mailer

import "context"

// Sender delivers a plaintext verification code to an address. The code is
// handed over exactly once and never persisted in the clear.
type Sender interface {
	SendOTP(ctx context.Context, email, code string) error
}
