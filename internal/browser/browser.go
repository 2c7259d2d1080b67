// Package browser exposes the page-fetching capability the crawler needs:
// one long-lived session handing out short-lived pages.
package browser

import (
	"context"
	"time"
)

// Session is a long-lived browser shared by every fetch of a run.
type Session interface {
	// NewPage opens an isolated page (tab). Callers must Close it.
	NewPage(ctx context.Context) (Page, error)
}

// Page is a single tab used for one navigation and its extraction.
type Page interface {
	// Navigate loads url, failing if it does not finish within timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitFor blocks until an element matching selector exists or timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// HTML returns the rendered document as HTML.
	HTML(ctx context.Context) (string, error)
	// Close releases the tab. It is safe to call more than once.
	Close() error
}
