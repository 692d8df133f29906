package page

import (
	"context"
	"fmt"

	"github.com/liuxd6825/webaccept/browser"
)

// Condition is the readiness predicate an action waits for.
type Condition int

// Readiness predicates.
const (
	// Present holds as soon as the element can be found.
	Present Condition = iota
	// Visible holds once the element is found and displayed.
	Visible
	// Clickable holds once the element is displayed and enabled.
	Clickable
)

func (c Condition) String() string {
	switch c {
	case Present:
		return "present"
	case Visible:
		return "visible"
	case Clickable:
		return "clickable"
	default:
		return fmt.Sprintf("condition(%d)", int(c))
	}
}

func (c Condition) holds(ctx context.Context, el browser.Element) (bool, error) {
	switch c {
	case Present:
		return true, nil
	case Visible:
		return el.IsDisplayed(ctx)
	case Clickable:
		visible, err := el.IsDisplayed(ctx)
		if err != nil || !visible {
			return false, err
		}
		return el.IsEnabled(ctx)
	default:
		return false, fmt.Errorf("unknown readiness condition %d", int(c))
	}
}
