package ports

import (
	"context"

	"github.com/insurex/insurance-auth/internal/core/domain"
)

// UserRepository defines credential persistence.
type UserRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no credential matches.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Save creates the credential and returns it with its assigned ID.
	// A uniqueness conflict on email yields domain.ErrEmailTaken.
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	List(ctx context.Context) ([]*domain.User, error)
}
