package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/insurex/insurance-auth/internal/api/metrics"
	"github.com/insurex/insurance-auth/internal/core/domain"
	"github.com/insurex/insurance-auth/internal/core/ports"
)

type AuthHandler struct {
	authService  ports.AuthService
	resetService ports.PasswordResetService
}

func NewAuthHandler(authService ports.AuthService, resetService ports.PasswordResetService) *AuthHandler {
	return &AuthHandler{authService: authService, resetService: resetService}
}

// bindAndValidate decodes the JSON body into req and runs the registered
// validator. Decode failures are 400, rule violations 422.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}

// Login authenticates a user and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrAuthenticationFailed) {
			metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		} else {
			metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		}
		return err
	}

	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return c.JSON(http.StatusOK, loginResponse{
		Token:     res.Token,
		Type:      "Bearer",
		ExpiresAt: res.ExpiresAt,
		ID:        res.UserID,
		Email:     res.Email,
		Roles:     res.Roles,
	})
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  statusResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	_, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
		case errors.Is(err, domain.ErrInvalidInput):
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		default:
			metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		}
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return c.JSON(http.StatusCreated, statusResponse{
		Status:  "success",
		Message: "User registered successfully!",
	})
}

// ForgotPassword issues a reset token and emails the reset link.
//
// @Summary      Request a password reset
// @Tags         password-reset
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  statusResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.resetService.Initiate(c.Request().Context(), req.Email); err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("initiate", resetResult(err)).Inc()
		return err
	}

	metrics.PasswordResetsTotal.WithLabelValues("initiate", metrics.ResultSuccess).Inc()
	return c.JSON(http.StatusOK, statusResponse{
		Status:  "success",
		Message: "Password reset link has been sent to your email",
	})
}

// ResetPassword consumes a reset token and stores the new password.
//
// @Summary      Reset a password
// @Tags         password-reset
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset token and new password"
// @Success      200   {object}  statusResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      410   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.resetService.Reset(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("reset", resetResult(err)).Inc()
		return err
	}

	metrics.PasswordResetsTotal.WithLabelValues("reset", metrics.ResultSuccess).Inc()
	return c.JSON(http.StatusOK, statusResponse{
		Status:  "success",
		Message: "Password has been reset successfully",
	})
}

// ValidateResetToken reports whether a reset token can still be used.
//
// @Summary      Validate a reset token
// @Tags         password-reset
// @Produce      json
// @Param        token  query     string  true  "Reset token"
// @Success      200    {object}  validateTokenResponse
// @Failure      400    {object}  validateTokenResponse
// @Router       /auth/validate-reset-token [get]
func (h *AuthHandler) ValidateResetToken(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, validateTokenResponse{Valid: false})
	}

	valid, err := h.resetService.Validate(c.Request().Context(), token)
	if err != nil {
		return err
	}
	if !valid {
		metrics.PasswordResetsTotal.WithLabelValues("validate", "invalid").Inc()
		return c.JSON(http.StatusBadRequest, validateTokenResponse{Valid: false})
	}

	metrics.PasswordResetsTotal.WithLabelValues("validate", metrics.ResultSuccess).Inc()
	return c.JSON(http.StatusOK, validateTokenResponse{Valid: true})
}

// Me returns the principal of the calling token.
//
// @Summary      Current principal
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Principal
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// ListUsers returns every registered credential without password hashes.
//
// @Summary      List users
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /auth/users [get]
func (h *AuthHandler) ListUsers(c echo.Context) error {
	users, err := h.authService.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	return c.JSON(http.StatusOK, resp)
}

func resetResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrResetTokenNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrResetTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrResetTokenUsed):
		return "used"
	case errors.Is(err, domain.ErrDeliveryFailed):
		return "delivery_failed"
	default:
		return metrics.ResultError
	}
}
