package interfaces

import (
	"context"
	"time"

	"github.com/camelotware/herald/internal/models"
)

// Session is one authenticated browser handle. Sessions are single-owner:
// all navigation through one session is strictly sequential, and the owner
// must call Close on every exit path.
type Session interface {
	// Context returns the browser automation context used for navigation.
	Context() context.Context

	// Close releases the browser process and its allocator.
	Close()
}

// SessionManager establishes authenticated sessions against the catalog
// site. Validity is decided by a content probe on a known
// authenticated-only page, never by cookie expiry timestamps.
type SessionManager interface {
	EnsureAuthenticated(ctx context.Context, jar *models.CookieJar) (Session, error)
}

// Navigator performs scripted navigations on an established session and
// returns raw page content. Retries are the caller's responsibility.
type Navigator interface {
	// Navigate loads a URL with the default settle delay for its kind.
	Navigate(ctx context.Context, sess Session, url string) (string, error)

	// NavigateAndWait loads a URL, sleeps for the settle duration, and
	// optionally waits (bounded) for waitSelector to become visible. A wait
	// timeout downgrades to proceeding without the element.
	NavigateAndWait(ctx context.Context, sess Session, url string, settle time.Duration, waitSelector string) (string, error)

	// SearchURL builds the item-search URL for a query.
	SearchURL(query string) string

	// DetailURL builds the item-detail URL for an external item id.
	DetailURL(itemID string) string
}
