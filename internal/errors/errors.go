package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session credential lifecycle
var (
	// Backend session API errors
	ErrBackendConnection      = errors.New("failed to connect to session backend")
	ErrBackendRejected        = errors.New("session backend rejected request")
	ErrBackendInvalidResponse = errors.New("invalid response from session backend")

	// Identity provider errors
	ErrIdentityProviderConnection      = errors.New("failed to connect to identity provider")
	ErrIdentityProviderRejected        = errors.New("identity provider rejected request")
	ErrIdentityProviderInvalidResponse = errors.New("invalid response from identity provider")

	// Sign-in errors
	ErrMissingSubject = errors.New("identity carries no subject")

	// Token codec errors
	ErrInvalidSessionCookie = errors.New("invalid session cookie")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
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
