package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/insurex/insurance-auth/internal/core/domain"
	"github.com/insurex/insurance-auth/internal/core/ports"
)

// AuthService implements registration, login and token authentication.
type AuthService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenCodec
	log    zerolog.Logger
	now    func() time.Time

	// dummyHash is compared against when the email is unknown so a missing
	// account costs the same hashing work as a wrong password.
	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenCodec, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a credential. Existing emails are rejected before any write.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("register: check email: %w", err)
	}
	if exists {
		return nil, domain.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := s.now()
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         domain.NormalizeRole(in.Roles),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Save(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("register: save user: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Msg("user registered")
	return created, nil
}

// Login verifies the credential and mints a bearer token. An unknown email and
// a wrong password produce the same domain.ErrAuthenticationFailed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.ErrAuthenticationFailed
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("login: find user: %w", err)
		}
		_ = s.hasher.Compare(s.getDummyHash(), password)
		return nil, domain.ErrAuthenticationFailed
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.log.Debug().Str("user_id", user.ID).Msg("password mismatch")
		return nil, domain.ErrAuthenticationFailed
	}

	principal := PrincipalFromUser(user)
	token, expiresAt, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &ports.LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    principal.UserID,
		Email:     principal.Email,
		Roles:     principal.Authorities(),
	}, nil
}

// Authenticate verifies a bearer token and resolves its principal without
// touching the credential store.
func (s *AuthService) Authenticate(_ context.Context, token string) (domain.Principal, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return domain.Principal{}, err
	}
	return ResolvePrincipal(claims), nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *AuthService) getDummyHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("insurex-dummy-password")
		if err != nil {
			s.log.Warn().Err(err).Msg("dummy hash unavailable")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
