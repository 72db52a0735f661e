package domain

import (
	"context"
	"time"
)

// Principal is the identity attached to a request for its whole lifetime.
// It is rebuilt on every request and never persisted.
type Principal struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	Authority string `json:"authority"`
}

// Authorities returns the granted authorities. There is always exactly one.
func (p Principal) Authorities() []string {
	return []string{p.Authority}
}

// HasAuthority reports whether the principal was granted one of roles.
func (p Principal) HasAuthority(roles ...Role) bool {
	for _, r := range roles {
		if p.Authority == string(r) {
			return true
		}
	}
	return false
}

// TokenClaims is the decoded content of a bearer token.
type TokenClaims struct {
	Subject   string
	UserID    string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx. ok is false for
// anonymous requests.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
