// Package page implements the synchronized interaction layer: logical
// element locators, a readiness waiter, a single wait-then-act primitive and
// the login page object built on top of it.
package page

import (
	"context"

	"github.com/liuxd6825/webaccept/browser"
)

// Locator maps a logical element name to its lookup. It holds no handle, the
// element is looked up again on every access so that page reloads between
// interactions do not leave stale references behind.
type Locator struct {
	Name string
	By   browser.By
}

// NewLocator returns a Locator for the named element.
func NewLocator(name string, by browser.By) Locator {
	return Locator{Name: name, By: by}
}

// Resolve looks the element up in s.
func (l Locator) Resolve(ctx context.Context, s browser.Session) (browser.Element, error) {
	return s.Find(ctx, l.By)
}

func (l Locator) String() string {
	return l.Name + " (" + l.By.String() + ")"
}
