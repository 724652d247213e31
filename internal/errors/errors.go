package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session gateway
var (
	// Credential errors
	ErrCredentialsRejected  = errors.New("credentials rejected")
	ErrRegistrationRejected = errors.New("registration rejected")

	// Session errors
	ErrSessionExpired      = errors.New("session expired, please sign in again")
	ErrRefreshFailed       = errors.New("token refresh failed")
	ErrNoRefreshToken      = errors.New("no refresh token stored")
	ErrSessionEnded        = errors.New("session ended while the operation was in flight")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrAlreadyBootstrapped = errors.New("session already bootstrapped")
	ErrStoreCleared        = errors.New("credential store cleared externally")

	// Backend errors
	ErrTransport          = errors.New("backend unreachable")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUnexpectedResponse = errors.New("unexpected backend response")

	// Storage errors
	ErrNotPersisted = errors.New("credentials not persisted")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// New returns an error that formats as the given text
func New(text string) error {
	return errors.New(text)
}

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
