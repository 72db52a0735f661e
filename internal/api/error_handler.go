package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/insurex/insurance-auth/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters only for errors that wrap more than one sentinel.
var domainErrors = []errorMapping{
	{domain.ErrAuthenticationFailed, http.StatusUnauthorized, "AUTHENTICATION_FAILED"},
	{domain.ErrExpiredToken, http.StatusUnauthorized, "TOKEN_EXPIRED"},
	{domain.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},
	{domain.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{domain.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{domain.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{domain.ErrResetTokenNotFound, http.StatusNotFound, "TOKEN_NOT_FOUND"},
	{domain.ErrResetTokenExpired, http.StatusGone, "TOKEN_EXPIRED"},
	{domain.ErrResetTokenUsed, http.StatusConflict, "TOKEN_ALREADY_USED"},
	{domain.ErrDeliveryFailed, http.StatusBadGateway, "DELIVERY_FAILED"},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and text code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<CODE>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, validation, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Code: httpCode(he.Code)}
	}

	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			// Domain messages are fixed strings; wrapped causes stay in the logs.
			if m.status >= http.StatusInternalServerError {
				log.Warn().Err(err).Str("path", c.Path()).Msg(m.code)
			}
			return m.status, errorResponse{Error: m.target.Error(), Code: m.code}
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "INTERNAL"}
}

func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnprocessableEntity:
		return "VALIDATION_FAILED"
	}
	text := http.StatusText(status)
	if text == "" {
		return "ERROR"
	}
	return strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text))
}
