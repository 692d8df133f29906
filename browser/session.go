// Package browser defines the remote browser session capability consumed by
// the page objects and the scenario controller. Backends live in the cdp and
// webdriver subpackages; browsertest provides an in-memory implementation.
package browser

import (
	"context"
)

// Launcher opens new browser sessions.
type Launcher interface {
	Open(ctx context.Context, opts Options) (Session, error)
}

// LauncherFunc is an adapter to allow regular functions to be used as a Launcher.
type LauncherFunc func(ctx context.Context, opts Options) (Session, error)

// Open calls f(ctx, opts).
func (f LauncherFunc) Open(ctx context.Context, opts Options) (Session, error) {
	return f(ctx, opts)
}

// Session is one live connection to a remote browser. A Session is owned by
// a single scenario and is not safe for use by multiple scenarios.
type Session interface {
	ID() string
	Navigate(ctx context.Context, url string) error
	// Find looks the element up on the current page. It returns
	// ErrNoSuchElement when nothing matches.
	Find(ctx context.Context, by By) (Element, error)
	// Screenshot captures the visible viewport as PNG bytes. Sessions that
	// cannot capture return ErrCaptureUnsupported.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Element is a handle to a DOM element found in a Session. Handles are only
// valid until the next navigation; callers should look elements up again
// instead of holding on to them.
type Element interface {
	Text(ctx context.Context) (string, error)
	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	IsSelected(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
}
