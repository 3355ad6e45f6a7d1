// Package providers holds the error taxonomy shared by the external
// identity-verification vendor clients.
package providers

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned before any network call when the vendor
// credentials are missing. It is never retried.
var ErrNotConfigured = errors.New("verification provider credentials not configured")

// Error is a non-2xx response from a vendor API. The raw body is kept for
// logs only and must not be shown to end users.
type Error struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a provider Error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.StatusCode == status
}
