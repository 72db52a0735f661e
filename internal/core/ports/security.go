package ports

import (
	"context"
	"time"

	"github.com/insurex/insurance-auth/internal/core/domain"
)

// TokenCodec signs and verifies bearer tokens.
type TokenCodec interface {
	Issue(p domain.Principal) (token string, expiresAt time.Time, err error)
	// Verify returns domain.ErrExpiredToken for a correctly signed token past
	// its expiry and domain.ErrInvalidToken for anything else that fails.
	Verify(token string) (domain.TokenClaims, error)
}

// PasswordHasher is a one-way hash for stored credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// MailSender delivers a plain-text message synchronously.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
