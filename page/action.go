package page

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/errext"
	"github.com/liuxd6825/webaccept/log"
)

// Interaction is the single operation an Action performs once its element is
// ready.
type Interaction int

// Supported interactions.
const (
	// SetText clears the element and types the payload into it.
	SetText Interaction = iota
	// Click clicks the element.
	Click
	// ReadText returns the text content of the element.
	ReadText
	// ReadVisible reports whether the element is displayed. Faults are never
	// returned, they are reported as not visible.
	ReadVisible
	// ReadSelected reports whether the element is selected.
	ReadSelected
	// Check selects the element by clicking it, unless it already is.
	Check
)

func (i Interaction) String() string {
	switch i {
	case SetText:
		return "set text"
	case Click:
		return "click"
	case ReadText:
		return "read text"
	case ReadVisible:
		return "read visible"
	case ReadSelected:
		return "read selected"
	case Check:
		return "check"
	default:
		return fmt.Sprintf("interaction(%d)", int(i))
	}
}

// Action describes one synchronized interaction: wait until Locator
// satisfies Condition, then perform Interaction exactly once.
type Action struct {
	Name        string
	Locator     Locator
	Condition   Condition
	Interaction Interaction
	Payload     string
}

// Outcome is the observed value of a read interaction.
type Outcome struct {
	Text string
	Flag bool
}

// InteractionError is returned when an action could not complete within its
// readiness window or the session faulted.
type InteractionError struct {
	Action string
	Err    error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Action, e.Err)
}

func (e *InteractionError) Unwrap() error {
	return e.Err
}

// Fields implements errext.HasFields.
func (e *InteractionError) Fields() logrus.Fields {
	return logrus.Fields{"action": e.Action}
}

// Hint implements errext.HasHint. Only readiness timeouts have one.
func (e *InteractionError) Hint() string {
	if !errors.Is(e.Err, ErrTimedOut) {
		return ""
	}
	return "raise --action-timeout if the page renders slowly"
}

var (
	_ errext.HasFields = &InteractionError{}
	_ errext.HasHint   = &InteractionError{}
)

// IsInteractionError returns true if err is or wraps an *InteractionError.
func IsInteractionError(err error) bool {
	var ierr *InteractionError
	return errors.As(err, &ierr)
}

// Actor performs synchronized actions against one session.
type Actor struct {
	session browser.Session
	waiter  *Waiter
	logger  *log.Logger
}

// NewActor binds an Actor to s.
func NewActor(s browser.Session, w *Waiter, logger *log.Logger) *Actor {
	if w == nil {
		w = NewWaiter(DefaultTimeout, DefaultPollInterval, logger)
	}
	return &Actor{session: s, waiter: w, logger: logger}
}

// Session returns the bound session.
func (a *Actor) Session() browser.Session {
	return a.session
}

// Perform waits for the action's condition and runs its interaction.
func (a *Actor) Perform(ctx context.Context, act Action) (Outcome, error) {
	a.logger.Debugf("Action:"+act.Interaction.String(), "%s on %s, waiting for %s",
		act.Name, act.Locator, act.Condition)

	el, err := a.waiter.Until(ctx, a.session, act.Locator, act.Condition)
	if err == nil {
		var out Outcome
		if out, err = a.interact(ctx, el, act); err == nil {
			return out, nil
		}
	}

	if act.Interaction == ReadVisible {
		a.logger.Debugf("Action:"+act.Interaction.String(), "%s reported as not visible: %v", act.Locator, err)
		return Outcome{Flag: false}, nil
	}
	a.logger.Warnf("Action:"+act.Interaction.String(), "%s failed: %v", act.Name, err)
	return Outcome{}, &InteractionError{Action: act.Name, Err: err}
}

func (a *Actor) interact(ctx context.Context, el browser.Element, act Action) (Outcome, error) {
	var out Outcome
	var err error
	switch act.Interaction {
	case SetText:
		if err = el.Clear(ctx); err == nil {
			err = el.SendKeys(ctx, act.Payload)
		}
	case Click:
		err = el.Click(ctx)
	case ReadText:
		out.Text, err = el.Text(ctx)
	case ReadVisible:
		out.Flag, err = el.IsDisplayed(ctx)
	case ReadSelected:
		out.Flag, err = el.IsSelected(ctx)
	case Check:
		if out.Flag, err = el.IsSelected(ctx); err == nil && !out.Flag {
			if err = el.Click(ctx); err == nil {
				out.Flag = true
			}
		}
	default:
		err = fmt.Errorf("unknown interaction %d", int(act.Interaction))
	}
	return out, err
}
