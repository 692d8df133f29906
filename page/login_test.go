package page

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/webaccept/browser/browsertest"
)

func newLoginPage(t *testing.T) (*LoginPage, *browsertest.Session) {
	t.Helper()
	s := browsertest.NewLoginSession(browsertest.DefaultErrorText)
	return NewLoginPage(s, fastWaiter(), nil), s
}

func TestLoginPageInvalidCredentials(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, s := newLoginPage(t)

	require.NoError(t, p.EnterUsername(ctx, "invalid@user.com"))
	require.NoError(t, p.EnterPassword(ctx, "wrongpass"))
	require.NoError(t, p.ClickLogin(ctx))

	msg, err := p.ErrorMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, browsertest.DefaultErrorText, msg)
	assert.Equal(t, "invalid@user.com", s.Element(browsertest.UsernameField).Value())
	assert.Equal(t, "wrongpass", s.Element(browsertest.PasswordField).Value())
	assert.Same(t, s, p.Session())
}

func TestLoginPageErrorMessageHidden(t *testing.T) {
	t.Parallel()

	p, _ := newLoginPage(t)
	_, err := p.ErrorMessage(context.Background())

	var ierr *InteractionError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "get error message", ierr.Action)
	assert.ErrorIs(t, err, ErrTimedOut)
}

func TestLoginPageVisibility(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	p, s := newLoginPage(t)
	assert.True(t, p.IsUsernameDisplayed(ctx))
	assert.True(t, p.IsPasswordDisplayed(ctx))
	assert.True(t, p.IsLoginButtonDisplayed(ctx))

	s.Element(browsertest.LoginButton).Hidden()
	assert.False(t, p.IsLoginButtonDisplayed(ctx))

	s.FailFind(errors.New("chrome not reachable"))
	assert.False(t, p.IsUsernameDisplayed(ctx))
	assert.False(t, p.IsPasswordDisplayed(ctx))
}

func TestLoginPageClickRememberMe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("starts unselected", func(t *testing.T) {
		t.Parallel()

		p, s := newLoginPage(t)
		box := s.Element(browsertest.RememberMe)

		require.NoError(t, p.ClickRememberMe(ctx))
		require.NoError(t, p.ClickRememberMe(ctx))
		assert.True(t, box.Selected())
		assert.Equal(t, 1, box.Clicks())

		selected, err := p.IsRememberMeSelected(ctx)
		require.NoError(t, err)
		assert.True(t, selected)
	})

	t.Run("starts selected", func(t *testing.T) {
		t.Parallel()

		p, s := newLoginPage(t)
		box := s.Element(browsertest.RememberMe).Checkbox(true)

		require.NoError(t, p.ClickRememberMe(ctx))
		require.NoError(t, p.ClickRememberMe(ctx))
		assert.True(t, box.Selected())
		assert.Zero(t, box.Clicks())
	})
}

func TestLoginPageMutationsPropagate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, s := newLoginPage(t)
	fault := errors.New("invalid session id")
	s.Element(browsertest.UsernameField).Fail(fault)

	err := p.EnterUsername(ctx, "someone")
	require.ErrorIs(t, err, fault)
	assert.EqualError(t, err, "failed to enter username: invalid session id")

	require.NoError(t, s.Close())
	err = p.ClickLogin(ctx)
	assert.True(t, IsInteractionError(err))
}
