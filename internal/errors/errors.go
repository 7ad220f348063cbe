package errors

import (
	"errors"
	"fmt"
)

// Common error kinds for the Canva integration
var (
	// Configuration errors
	ErrNotConfigured = errors.New("canva integration is not configured")

	// Handshake errors
	ErrStateMismatch       = errors.New("state mismatch")
	ErrMissingCode         = errors.New("missing authorization code")
	ErrProviderDenied      = errors.New("provider reported an error")
	ErrInvalidAuthorizeURL = errors.New("invalid authorize url")

	// Token errors
	ErrTokenExchange = errors.New("token exchange failed")
	ErrTokenRefresh  = errors.New("token refresh failed")

	// Gateway errors
	ErrNoSession       = errors.New("no canva session")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrUpstream        = errors.New("upstream request failed")

	// Correlation errors
	ErrInvalidJWT = errors.New("invalid_jwt")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
