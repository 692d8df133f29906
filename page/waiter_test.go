package page

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/browser/browsertest"
)

func fastWaiter() *Waiter {
	return NewWaiter(50*time.Millisecond, time.Millisecond, nil)
}

func TestNewWaiterDefaults(t *testing.T) {
	t.Parallel()

	w := NewWaiter(0, -1, nil)
	assert.Equal(t, DefaultTimeout, w.Timeout)
	assert.Equal(t, DefaultPollInterval, w.PollInterval)

	var nilWaiter *Waiter
	assert.Equal(t, DefaultTimeout, nilWaiter.timeout())
	assert.Equal(t, DefaultPollInterval, nilWaiter.pollInterval())
}

func TestWaiterUntil(t *testing.T) {
	t.Parallel()

	loc := NewLocator("banner", browser.ID("banner"))

	t.Run("ready", func(t *testing.T) {
		t.Parallel()

		el := browsertest.NewElement("hi")
		s := browsertest.NewSession().Add(loc.By, el)
		got, err := fastWaiter().Until(context.Background(), s, loc, Visible)
		require.NoError(t, err)
		assert.Same(t, el, got)
	})

	t.Run("appears late", func(t *testing.T) {
		t.Parallel()

		s := browsertest.NewSession().
			Add(loc.By, browsertest.NewElement("hi")).
			AppearAfter(loc.By, 3)
		_, err := fastWaiter().Until(context.Background(), s, loc, Present)
		require.NoError(t, err)
		assert.Equal(t, 4, s.Lookups(loc.By))
	})

	t.Run("becomes visible", func(t *testing.T) {
		t.Parallel()

		s := browsertest.NewSession().Add(loc.By, browsertest.NewElement("hi").ShowAfter(2))
		_, err := fastWaiter().Until(context.Background(), s, loc, Visible)
		require.NoError(t, err)
	})

	t.Run("never visible", func(t *testing.T) {
		t.Parallel()

		s := browsertest.NewSession().Add(loc.By, browsertest.NewElement("hi").Hidden())
		start := time.Now()
		_, err := fastWaiter().Until(context.Background(), s, loc, Visible)
		require.ErrorIs(t, err, ErrTimedOut)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
		assert.Contains(t, err.Error(), "banner (id=banner) not visible")
	})

	t.Run("disabled is not clickable", func(t *testing.T) {
		t.Parallel()

		s := browsertest.NewSession().Add(loc.By, browsertest.NewElement("hi").Disabled())
		_, err := fastWaiter().Until(context.Background(), s, loc, Clickable)
		require.ErrorIs(t, err, ErrTimedOut)
	})

	t.Run("missing element", func(t *testing.T) {
		t.Parallel()

		_, err := fastWaiter().Until(context.Background(), browsertest.NewSession(), loc, Present)
		require.ErrorIs(t, err, ErrTimedOut)
		require.ErrorIs(t, err, browser.ErrNoSuchElement)
	})

	t.Run("session fault ends the wait", func(t *testing.T) {
		t.Parallel()

		fault := errors.New("connection reset")
		s := browsertest.NewSession().FailFind(fault)
		_, err := NewWaiter(time.Minute, time.Millisecond, nil).Until(context.Background(), s, loc, Present)
		require.ErrorIs(t, err, fault)
		assert.Equal(t, 1, s.Lookups(loc.By))
	})

	t.Run("cancellation does not end the wait", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := browsertest.NewSession().
			Add(loc.By, browsertest.NewElement("hi")).
			AppearAfter(loc.By, 2)
		_, err := fastWaiter().Until(ctx, s, loc, Present)
		require.NoError(t, err)
	})
}
