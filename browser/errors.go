package browser

import "errors"

var (
	// ErrNoSuchElement is returned by Session.Find when nothing matches.
	ErrNoSuchElement = errors.New("no such element")
	// ErrStaleElement is returned by Element methods when the element was
	// detached from the page after it had been found.
	ErrStaleElement = errors.New("stale element reference")
	// ErrSessionClosed is returned by every call on a closed Session.
	ErrSessionClosed = errors.New("browser session closed")
	// ErrCaptureUnsupported is returned by Session.Screenshot when the
	// backend cannot capture the viewport.
	ErrCaptureUnsupported = errors.New("visual capture not supported")
	// ErrNavigating is returned when a query lands on a document that is
	// being replaced, e.g. while a form submit reloads the page.
	ErrNavigating = errors.New("page is navigating")
)

// IsTransient reports whether err may go away by looking the element up again.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNoSuchElement) ||
		errors.Is(err, ErrStaleElement) ||
		errors.Is(err, ErrNavigating)
}
