package models

import (
	"errors"
	"fmt"
)

// Technical failures abort the current operation and surface verbatim.
// Business-rule rejections are FilteredItem values, never errors.
var (
	// ErrNoCredentials means no cookie store exists (or it is corrupt).
	// The user must re-authenticate interactively before retrying.
	ErrNoCredentials = errors.New("no stored credentials")

	// ErrDriverInit means the browser automation process failed to start.
	// This is an environment problem and is not retried.
	ErrDriverInit = errors.New("browser driver failed to initialize")

	// ErrReadOnlyCatalog flags a write attempted against the internal
	// catalog. This is a programming error at the call site.
	ErrReadOnlyCatalog = errors.New("catalog is read-only")
)

// AuthenticationError is returned when the content probe found the site's
// "page not available" marker, meaning the stored session is no longer
// valid regardless of what the cookie expiry timestamps say.
type AuthenticationError struct {
	ProbeURL string
	Hint     string
}

func (e *AuthenticationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("session rejected by %s: %s", e.ProbeURL, e.Hint)
	}
	return fmt.Sprintf("session rejected by %s", e.ProbeURL)
}

// IsAuthenticationError reports whether err is (or wraps) an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}
