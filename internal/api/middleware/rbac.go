package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/insurex/insurance-auth/internal/core/domain"
)

// RequireAuthenticated rejects requests that reached it without a principal.
func RequireAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := domain.PrincipalFrom(c.Request().Context()); !ok {
				return domain.ErrUnauthenticated
			}
			return next(c)
		}
	}
}

// RequireRole enforces role-based access control. Anonymous requests get
// domain.ErrUnauthenticated, principals outside allowedRoles get
// domain.ErrForbidden.
func RequireRole(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := domain.PrincipalFrom(c.Request().Context())
			if !ok {
				return domain.ErrUnauthenticated
			}
			if !p.HasAuthority(allowedRoles...) {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
