package steps

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/browser/browsertest"
	"github.com/liuxd6825/webaccept/page"
	"github.com/liuxd6825/webaccept/scenario"
)

func TestScriptsRunAgainstLoginPage(t *testing.T) {
	t.Parallel()

	launcher := &browsertest.Launcher{}
	cfg := scenario.Config{
		Launcher: launcher,
		Options:  browser.DefaultOptions(),
		Waiter:   page.NewWaiter(50*time.Millisecond, time.Millisecond, nil),
	}

	scripts := Scripts(Settings{})
	require.Len(t, scripts, 3)
	for _, sc := range scripts {
		res := scenario.NewController(sc, cfg).Run(context.Background())
		assert.Equal(t, scenario.StatusPassed, res.Status, "%s: %v", sc.Name, res.Err)
		assert.Equal(t, FeatureName, res.Feature)
	}

	sessions := launcher.Sessions()
	require.Len(t, sessions, 3)
	assert.True(t, sessions[2].Element(browsertest.RememberMe).Selected())
	assert.Equal(t, DefaultUsername, sessions[1].Element(browsertest.UsernameField).Value())
}

func TestStepsWithoutSession(t *testing.T) {
	t.Parallel()

	launcher := &browsertest.Launcher{}
	c := scenario.NewController(scenario.Script{Name: "no session"}, scenario.Config{Launcher: launcher})
	for _, st := range []scenario.Step{
		EnterCredentials("a", "b"), ClickLogin(), TickRememberMe(),
		AssertLoginElementsVisible(), AssertErrorMessage("x"),
	} {
		assert.ErrorIs(t, st.Run(context.Background(), c), scenario.ErrNoSession, st.Name)
	}
	assert.NoError(t, TakeScreenshot().Run(context.Background(), c))
}

func TestStepNamesMatchExpressions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		expr string
		step scenario.Step
	}{
		{NavigateExpr, NavigateToLogin(DefaultLoginURL)},
		{CredentialsExpr, EnterCredentials("invalid@user.com", "wrongpass")},
		{ClickLoginExpr, ClickLogin()},
		{RememberMeExpr, TickRememberMe()},
		{ElementsVisibleExpr, AssertLoginElementsVisible()},
		{ErrorMessageExpr, AssertErrorMessage("Bad password")},
		{ScreenshotExpr, TakeScreenshot()},
	}
	for _, tc := range testCases {
		assert.Regexp(t, regexp.MustCompile(tc.expr), tc.step.Name)
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	scripts := Scripts(Settings{ExpectedError: "custom"})
	assert.Len(t, Filter(scripts, nil), 3)
	assert.Len(t, Filter(scripts, []string{"@negative"}), 2)
	smoke := Filter(scripts, []string{"@smoke", "@unknown"})
	require.Len(t, smoke, 1)
	assert.Equal(t, "Login page elements are visible", smoke[0].Name)
	assert.Empty(t, Filter(scripts, []string{"@unknown"}))
}
