package ports

import (
	"context"

	"github.com/insurex/insurance-auth/internal/core/domain"
)

// ResetTokenRepository persists password-reset tokens.
type ResetTokenRepository interface {
	// ReplaceForUser removes every token owned by t.UserID and stores t, as one
	// atomic step, so a user never holds more than one token.
	ReplaceForUser(ctx context.Context, t *domain.PasswordResetToken) error
	// FindByToken returns domain.ErrResetTokenNotFound when absent.
	FindByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error)
	// FindByUser returns the user's current token, or
	// domain.ErrResetTokenNotFound when the user holds none.
	FindByUser(ctx context.Context, userID string) (*domain.PasswordResetToken, error)
	// MarkUsed flips used from false to true. It returns false when the token
	// was already used or does not exist; only one caller can ever get true.
	MarkUsed(ctx context.Context, token string) (bool, error)
	// Release flips used from true back to false. It undoes a MarkUsed whose
	// follow-up write failed. A missing token is not an error.
	Release(ctx context.Context, token string) error
	Delete(ctx context.Context, token string) error
}
