package session

import (
	"fmt"

	"github.com/jrsteele09/go-session-gateway/internal/errors"
)

var (
	ErrCredentialsRejected  = errors.ErrCredentialsRejected
	ErrRegistrationRejected = errors.ErrRegistrationRejected
	ErrBackendUnavailable   = errors.ErrBackendUnavailable
	ErrSessionExpired       = errors.ErrSessionExpired
	ErrRefreshFailed        = errors.ErrRefreshFailed
	ErrNoRefreshToken       = errors.ErrNoRefreshToken
	ErrSessionEnded         = errors.ErrSessionEnded
	ErrNotAuthenticated     = errors.ErrNotAuthenticated
	ErrAlreadyBootstrapped  = errors.ErrAlreadyBootstrapped
	ErrStoreCleared         = errors.ErrStoreCleared
)

// Op names the session operation an Error came from.
type Op string

const (
	OpBootstrap Op = "bootstrap"
	OpLogin     Op = "login"
	OpRegister  Op = "register"
	OpRefresh   Op = "refresh"
	OpCheck     Op = "check"
)

// Error is returned by the session operations. Err carries one of the
// sentinel errors above, possibly wrapping the underlying cause.
type Error struct {
	Op  Op
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsSignInRequired reports whether err means the user has to enter their
// credentials again.
func IsSignInRequired(err error) bool {
	return errors.Is(err, ErrCredentialsRejected) || errors.Is(err, ErrSessionExpired)
}

func opError(op Op, kind error, cause error) *Error {
	if cause == nil || errors.Is(cause, kind) {
		if cause == nil {
			cause = kind
		}
		return &Error{Op: op, Err: cause}
	}
	return &Error{Op: op, Err: fmt.Errorf("%w: %w", kind, cause)}
}
