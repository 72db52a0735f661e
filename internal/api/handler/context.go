package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/insurex/insurance-auth/internal/core/domain"
)

// ctxPrincipal returns the principal the authentication gate attached to the
// request. Routes behind RequireAuthenticated always have one; the check here
// keeps a misconfigured route from answering with an empty identity.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := domain.PrincipalFrom(c.Request().Context())
	if !ok {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	return p, nil
}
