package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/insurex/insurance-auth/internal/api/metrics"
	"github.com/insurex/insurance-auth/internal/core/domain"
	"github.com/insurex/insurance-auth/internal/core/ports"
)

// Mode decides what the gate does with a bearer token that fails verification.
type Mode string

const (
	// ModeAnonymous lets the request through without a principal.
	ModeAnonymous Mode = "anonymous"
	// ModeReject answers 401 immediately.
	ModeReject Mode = "reject"
)

const bearerPrefix = "Bearer "

// Authenticate resolves the principal of every request carrying a Bearer
// token and stores it on the request context. It never rejects a request
// that has no token; authorization is left to RequireAuthenticated and
// RequireRole.
func Authenticate(authenticator ports.TokenAuthenticator, mode Mode, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method == http.MethodOptions {
				return next(c)
			}

			header := req.Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerPrefix) {
				return next(c)
			}
			token := strings.TrimSpace(header[len(bearerPrefix):])

			principal, err := authenticator.Authenticate(req.Context(), token)
			if err != nil {
				expired := errors.Is(err, domain.ErrExpiredToken)
				if expired {
					metrics.TokenVerificationsTotal.WithLabelValues("expired").Inc()
				} else {
					metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
				}
				log.Debug().Err(err).Str("path", c.Path()).Msg("bearer token rejected")

				if mode == ModeReject {
					if expired {
						return domain.ErrExpiredToken
					}
					return domain.ErrInvalidToken
				}
				return next(c)
			}

			metrics.TokenVerificationsTotal.WithLabelValues("valid").Inc()
			c.SetRequest(req.WithContext(domain.WithPrincipal(req.Context(), principal)))
			return next(c)
		}
	}
}
