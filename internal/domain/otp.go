package domain

import "time"

// OTPRecord is one stored email verification code. Only a bcrypt hash of the
// code is persisted. The verifier always checks the newest record for a user,
// so older records become logically void without deletion.
type OTPRecord struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	OTPHash      string     `json:"-"`
	ExpiresAt    time.Time  `json:"expires_at"`
	Attempts     int        `json:"attempts"`
	ConsumedAt   *time.Time `json:"consumed_at,omitempty"`
	ConsumedByIP string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Consumed reports whether the record has already been redeemed.
// Consumption is permanent.
func (o *OTPRecord) Consumed() bool {
	return o.ConsumedAt != nil
}

// ExpiredAt reports whether the code's validity window has passed.
func (o *OTPRecord) ExpiredAt(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
