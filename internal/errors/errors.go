package errors

import (
	"errors"
)

// Common error types for the ILUMINA session client and development backend
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthorized       = errors.New("unauthorized")

	// Token errors
	ErrInvalidToken        = errors.New("invalid token")
	ErrMissingToken        = errors.New("response did not contain an access token")
	ErrTokenExpired        = errors.New("token expired")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")

	// Profile errors
	ErrInvalidProfile = errors.New("invalid user profile")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrBadResponse = errors.New("unexpected response from backend")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
