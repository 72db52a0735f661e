package ports

import (
	"context"
	"time"

	"github.com/insurex/insurance-auth/internal/core/domain"
)

// RegisterInput carries a registration request.
type RegisterInput struct {
	Email    string
	Password string
	Roles    []string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
	Email     string
	Roles     []string
}

// AuthService covers registration, login and bearer-token authentication.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

// TokenAuthenticator turns a raw bearer token into a principal.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Principal, error)
}

// PasswordResetService manages the out-of-band reset flow.
type PasswordResetService interface {
	Initiate(ctx context.Context, email string) error
	Reset(ctx context.Context, token, newPassword string) error
	Validate(ctx context.Context, token string) (bool, error)
}
