package domain

import "errors"

// Credential and bearer-token errors.
var (
	ErrAuthenticationFailed = errors.New("invalid email or password")
	ErrInvalidToken         = errors.New("invalid token")
	ErrExpiredToken         = errors.New("token expired")
	ErrUnauthenticated      = errors.New("authentication required")
	ErrForbidden            = errors.New("access forbidden")
	ErrWeakSecret           = errors.New("jwt secret must be at least 32 bytes")
	ErrInvalidInput         = errors.New("email and password are required")
)

// Registration and lookup errors.
var (
	ErrEmailTaken   = errors.New("email is already taken")
	ErrUserNotFound = errors.New("user not found")
)

// Password reset errors.
var (
	ErrResetTokenNotFound = errors.New("invalid password reset token")
	ErrResetTokenExpired  = errors.New("password reset token has expired")
	ErrResetTokenUsed     = errors.New("password reset token has already been used")
	ErrDeliveryFailed     = errors.New("failed to send password reset email")
)
