package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/insurex/insurance-auth/internal/core/domain"
)

// minSecretLen is the HS256 key size in bytes.
const minSecretLen = 32

// Claims is the JWT payload: registered claims plus user id and role.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"user_role"`
	jwt.RegisteredClaims
}

// JWTCodec issues and verifies HS256 bearer tokens. The key is set once at
// construction and only read afterwards, so a codec is safe for concurrent use.
type JWTCodec struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// Option customises a JWTCodec.
type Option func(*JWTCodec)

// WithIssuer sets the iss claim.
func WithIssuer(issuer string) Option {
	return func(c *JWTCodec) { c.issuer = issuer }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *JWTCodec) { c.now = now }
}

// NewJWTCodec validates the secret and returns a ready codec.
func NewJWTCodec(secret string, ttl time.Duration, opts ...Option) (*JWTCodec, error) {
	if len(secret) < minSecretLen {
		return nil, domain.ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	c := &JWTCodec{
		key: []byte(secret),
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue mints a token for p.
func (c *JWTCodec) Issue(p domain.Principal) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(c.ttl)

	claims := Claims{
		UserID: p.UserID,
		Role:   string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Email,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry and returns the decoded claims.
func (c *JWTCodec) Verify(token string) (domain.TokenClaims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return domain.TokenClaims{}, fmt.Errorf("%w: %v", domain.ErrExpiredToken, err)
		}
		return domain.TokenClaims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.UserID == "" || claims.Role == "" {
		return domain.TokenClaims{}, fmt.Errorf("%w: missing claims", domain.ErrInvalidToken)
	}

	out := domain.TokenClaims{
		Subject: claims.Subject,
		UserID:  claims.UserID,
		Role:    domain.Role(claims.Role),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
