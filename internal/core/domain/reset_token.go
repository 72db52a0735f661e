package domain

import "time"

// ResetState is the lifecycle position of a password-reset token.
type ResetState string

const (
	ResetStateNone    ResetState = "none"
	ResetStateLive    ResetState = "live"
	ResetStateUsed    ResetState = "used"
	ResetStateExpired ResetState = "expired"
)

// PasswordResetToken is a single-use credential that authorizes one password
// change for its owning user.
type PasswordResetToken struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired reports whether now is past the token expiry.
func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// State derives the lifecycle state. Expiry takes precedence over use.
func (t *PasswordResetToken) State(now time.Time) ResetState {
	switch {
	case t == nil:
		return ResetStateNone
	case t.IsExpired(now):
		return ResetStateExpired
	case t.Used:
		return ResetStateUsed
	default:
		return ResetStateLive
	}
}
