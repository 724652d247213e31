package gateway

import (
	"fmt"

	"github.com/jrsteele09/go-session-gateway/internal/errors"
)

var (
	// ErrTransport is returned when the backend could not be reached or
	// the call timed out. It never triggers a refresh.
	ErrTransport = errors.ErrTransport
	// ErrSessionExpired is returned when a request was rejected and the
	// session could not be recovered. The caller must sign in again.
	ErrSessionExpired = errors.ErrSessionExpired
)

// StatusError describes a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}
