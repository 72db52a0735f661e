package service

import "github.com/insurex/insurance-auth/internal/core/domain"

// ResolvePrincipal builds the request principal from verified token claims.
// The role is taken from the claims as-is: a role change in the store is only
// visible once the holder logs in again and receives a new token.
func ResolvePrincipal(claims domain.TokenClaims) domain.Principal {
	return domain.Principal{
		UserID:    claims.UserID,
		Email:     claims.Subject,
		Role:      claims.Role,
		Authority: string(claims.Role),
	}
}

// PrincipalFromUser builds the principal for a freshly authenticated user.
func PrincipalFromUser(u *domain.User) domain.Principal {
	return ResolvePrincipal(domain.TokenClaims{
		Subject: u.Email,
		UserID:  u.ID,
		Role:    u.Role,
	})
}
