package page

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/log"
)

const (
	// DefaultTimeout is how long an action waits for its element to be ready.
	DefaultTimeout = 10 * time.Second
	// DefaultPollInterval is how often readiness is checked while waiting.
	DefaultPollInterval = 100 * time.Millisecond
)

// ErrTimedOut is wrapped by the error returned when readiness is not
// observed within the wait timeout.
var ErrTimedOut = errors.New("timed out")

// Waiter blocks until an element satisfies a Condition.
type Waiter struct {
	Timeout      time.Duration
	PollInterval time.Duration
	Logger       *log.Logger
}

// NewWaiter returns a Waiter using the given timeout and poll interval.
// Non-positive values fall back to the defaults.
func NewWaiter(timeout, pollInterval time.Duration, logger *log.Logger) *Waiter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Waiter{Timeout: timeout, PollInterval: pollInterval, Logger: logger}
}

func (w *Waiter) timeout() time.Duration {
	if w == nil || w.Timeout <= 0 {
		return DefaultTimeout
	}
	return w.Timeout
}

func (w *Waiter) pollInterval() time.Duration {
	if w == nil || w.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return w.PollInterval
}

func (w *Waiter) logger() *log.Logger {
	if w == nil {
		return nil
	}
	return w.Logger
}

// Until polls s until the element behind loc satisfies cond and returns the
// element found by the successful poll. Missing or stale elements keep the
// wait going; any other session fault ends it immediately.
//
// Only the timeout ends a wait early: cancellation of ctx is not observed,
// the values it carries are.
func (w *Waiter) Until(
	ctx context.Context, s browser.Session, loc Locator, cond Condition,
) (browser.Element, error) {
	timeout := w.timeout()
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	ticker := time.NewTicker(w.pollInterval())
	defer ticker.Stop()

	start := time.Now()
	var lastErr error
	for polls := 1; ; polls++ {
		el, ok, err := w.poll(waitCtx, s, loc, cond)
		switch {
		case ok:
			w.logger().Debugf("Waiter:Until", "%s is %s after %d polls in %s",
				loc, cond, polls, time.Since(start))
			return el, nil
		case err != nil && !browser.IsTransient(err):
			if waitCtx.Err() == nil {
				return nil, err
			}
		default:
			lastErr = err
		}

		select {
		case <-waitCtx.Done():
			if lastErr != nil {
				return nil, fmt.Errorf("%s not %s after %s (%w): %w", loc, cond, timeout, lastErr, ErrTimedOut)
			}
			return nil, fmt.Errorf("%s not %s after %s: %w", loc, cond, timeout, ErrTimedOut)
		case <-ticker.C:
		}
	}
}

func (w *Waiter) poll(
	ctx context.Context, s browser.Session, loc Locator, cond Condition,
) (browser.Element, bool, error) {
	el, err := loc.Resolve(ctx, s)
	if err != nil {
		return nil, false, err
	}
	ok, err := cond.holds(ctx, el)
	if err != nil || !ok {
		return nil, false, err
	}
	return el, true, nil
}
