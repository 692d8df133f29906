package scenario_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/browser/browsertest"
	"github.com/liuxd6825/webaccept/errext"
	"github.com/liuxd6825/webaccept/lib/testutils"
	"github.com/liuxd6825/webaccept/log"
	"github.com/liuxd6825/webaccept/page"
	"github.com/liuxd6825/webaccept/scenario"
	"github.com/liuxd6825/webaccept/steps"
)

type fixture struct {
	launcher *browsertest.Launcher
	hook     *testutils.SimpleLogrusHook
	cfg      scenario.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, hook := testutils.NewLogrusLogger(t)
	launcher := &browsertest.Launcher{}
	return &fixture{
		launcher: launcher,
		hook:     hook,
		cfg: scenario.Config{
			Launcher: launcher,
			Options:  browser.DefaultOptions(),
			Waiter:   page.NewWaiter(50*time.Millisecond, time.Millisecond, nil),
			Logger:   log.New(logger, nil),
		},
	}
}

func (f *fixture) session(t *testing.T) *browsertest.Session {
	t.Helper()
	sessions := f.launcher.Sessions()
	require.Len(t, sessions, 1)
	return sessions[0]
}

func invalidLogin(expected string) scenario.Script {
	return scenario.Script{
		Name: "Login with invalid credentials",
		Steps: []scenario.Step{
			steps.NavigateToLogin(steps.DefaultLoginURL),
			steps.EnterCredentials("invalid@user.com", "wrongpass"),
			steps.ClickLogin(),
			steps.AssertErrorMessage(expected),
		},
	}
}

func TestInvalidCredentialsMatchingMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := scenario.NewController(invalidLogin(browsertest.DefaultErrorText), f.cfg).Run(context.Background())

	assert.Equal(t, scenario.StatusPassed, res.Status)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Attachments)
	assert.Equal(t, 4, res.Executed())
	assert.NotEmpty(t, res.ID)

	s := f.session(t)
	assert.Equal(t, []string{steps.DefaultLoginURL}, s.Navigations())
	assert.Equal(t, 1, s.CloseCalls())
	assert.Zero(t, s.Screenshots())
}

func TestInvalidCredentialsMismatchingMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := scenario.NewController(invalidLogin("Your account is locked."), f.cfg).Run(context.Background())

	assert.Equal(t, scenario.StatusFailed, res.Status)
	var aerr *scenario.AssertionError
	require.ErrorAs(t, res.Err, &aerr)
	assert.Equal(t, "Error message mismatch", aerr.Message)
	assert.Equal(t, browsertest.DefaultErrorText, aerr.Actual)

	require.Len(t, res.Attachments, 1)
	assert.Equal(t, scenario.FailureScreenshot, res.Attachments[0].Label())
	assert.Equal(t, scenario.MediaTypePNG, res.Attachments[0].MediaType())
	assert.Equal(t, browsertest.PNG, res.Attachments[0].Data())

	s := f.session(t)
	assert.Equal(t, 1, s.CloseCalls())
	assert.Equal(t, 1, s.Screenshots())
	require.Len(t, res.Steps, 4)
	assert.Equal(t, scenario.StepFailed, res.Steps[3].Status)
}

func TestLoginElementsVisible(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := scenario.NewController(scenario.Script{
		Name: "Login page elements are visible",
		Steps: []scenario.Step{
			steps.NavigateToLogin(steps.DefaultLoginURL),
			steps.AssertLoginElementsVisible(),
		},
	}, f.cfg).Run(context.Background())

	assert.Equal(t, scenario.StatusPassed, res.Status)
	assert.Empty(t, res.Attachments)
	assert.Equal(t, 1, f.session(t).CloseCalls())
}

func TestProvisioningFault(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.launcher.Err = errors.New("session not created: chrome not found")
	c := scenario.NewController(invalidLogin(browsertest.DefaultErrorText), f.cfg)
	res := c.Run(context.Background())

	assert.Equal(t, scenario.StatusFailed, res.Status)
	var perr *scenario.ProvisioningError
	require.ErrorAs(t, res.Err, &perr)
	assert.ErrorIs(t, res.Err, f.launcher.Err)
	assert.Contains(t, errext.Hint(res.Err), "--executable-path")
	assert.Zero(t, res.Executed())
	require.Len(t, res.Steps, 4)
	for _, st := range res.Steps {
		assert.Equal(t, scenario.StepSkipped, st.Status)
	}
	assert.Empty(t, res.Attachments)
	assert.Empty(t, f.launcher.Sessions())
	assert.Equal(t, scenario.Closed, c.State())
	assert.Len(t, f.launcher.Options(), 1)
	assert.True(t, testutils.LogContains(f.hook.Drain(), logrus.ErrorLevel, "driver initialization failed"))
}

func TestFailingStepSkipsTheRest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.launcher.NewSession = func() *browsertest.Session {
		return browsertest.NewLoginSession(browsertest.DefaultErrorText).
			FailNavigate(errors.New("net::ERR_NAME_NOT_RESOLVED"))
	}
	res := scenario.NewController(invalidLogin(browsertest.DefaultErrorText), f.cfg).Run(context.Background())

	assert.Equal(t, scenario.StatusFailed, res.Status)
	assert.EqualError(t, res.Err, "navigation failed: net::ERR_NAME_NOT_RESOLVED")
	assert.Equal(t, 1, res.Executed())
	require.Len(t, res.Steps, 4)
	assert.Equal(t, scenario.StepFailed, res.Steps[0].Status)
	assert.Equal(t, scenario.StepSkipped, res.Steps[1].Status)
	assert.Len(t, res.Attachments, 1)

	s := f.session(t)
	assert.Zero(t, s.Element(browsertest.LoginButton).Clicks())
	assert.Empty(t, s.Element(browsertest.UsernameField).Mutations())
}

func TestInteractionFailureFailsScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.launcher.NewSession = func() *browsertest.Session {
		s := browsertest.NewLoginSession(browsertest.DefaultErrorText)
		s.Element(browsertest.LoginButton).Disabled()
		return s
	}
	res := scenario.NewController(invalidLogin(browsertest.DefaultErrorText), f.cfg).Run(context.Background())

	assert.Equal(t, scenario.StatusFailed, res.Status)
	assert.True(t, page.IsInteractionError(res.Err))
	assert.ErrorIs(t, res.Err, page.ErrTimedOut)
	assert.Equal(t, 3, res.Executed())
	assert.Len(t, res.Attachments, 1)
}

func TestExplicitScreenshot(t *testing.T) {
	t.Parallel()

	script := scenario.Script{
		Name: "screenshot",
		Steps: []scenario.Step{
			steps.NavigateToLogin(steps.DefaultLoginURL),
			steps.TakeScreenshot(),
		},
	}

	t.Run("attached", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		res := scenario.NewController(script, f.cfg).Run(context.Background())
		assert.Equal(t, scenario.StatusPassed, res.Status)
		require.Len(t, res.Attachments, 1)
		assert.Equal(t, scenario.ExplicitScreenshot, res.Attachments[0].Label())
	})

	t.Run("failure is only logged", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.launcher.NewSession = func() *browsertest.Session {
			return browsertest.NewLoginSession("").FailScreenshot(browser.ErrCaptureUnsupported)
		}
		res := scenario.NewController(script, f.cfg).Run(context.Background())
		assert.Equal(t, scenario.StatusPassed, res.Status)
		assert.Empty(t, res.Attachments)
		assert.True(t, testutils.LogContains(f.hook.Drain(), logrus.WarnLevel, "Failed to take screenshot"))
	})
}

func TestFinalizeFaultsAreLogged(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.launcher.NewSession = func() *browsertest.Session {
		return browsertest.NewLoginSession(browsertest.DefaultErrorText).
			FailScreenshot(errors.New("screenshot timed out")).
			FailClose(errors.New("chrome already exited"))
	}
	res := scenario.NewController(invalidLogin("nope"), f.cfg).Run(context.Background())

	assert.Equal(t, scenario.StatusFailed, res.Status)
	var aerr *scenario.AssertionError
	assert.ErrorAs(t, res.Err, &aerr)
	assert.Empty(t, res.Attachments)
	assert.Equal(t, 1, f.session(t).CloseCalls())

	entries := f.hook.Drain()
	assert.True(t, testutils.LogContains(entries, logrus.ErrorLevel, "screenshot timed out"))
	assert.True(t, testutils.LogContains(entries, logrus.ErrorLevel, "close session: chrome already exited"))
}

func TestFinalizeRunsOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	c := scenario.NewController(scenario.Script{Name: "hooks"}, f.cfg)

	require.NoError(t, c.Provision(ctx))
	assert.Equal(t, scenario.Ready, c.State())
	require.NoError(t, c.RunStep(ctx, steps.NavigateToLogin("https://example.test/login")))
	assert.Equal(t, scenario.Executing, c.State())

	first := c.Finalize(ctx, errors.New("step is undefined"))
	second := c.Finalize(ctx, nil)

	assert.Equal(t, scenario.StatusFailed, first.Status)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Attachments, 1)
	s := f.session(t)
	assert.Equal(t, 1, s.CloseCalls())
	assert.Equal(t, 1, s.Screenshots())

	assert.ErrorIs(t, c.Provision(ctx), scenario.ErrControllerClosed)
	assert.ErrorIs(t, c.RunStep(ctx, steps.ClickLogin()), scenario.ErrControllerClosed)
	assert.Nil(t, c.Screenshot(ctx, "late"))
}

func TestFinalizeWithoutProvisioning(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := scenario.NewController(scenario.Script{Name: "idle"}, f.cfg).Finalize(context.Background(), nil)

	assert.Equal(t, scenario.StatusFailed, res.Status)
	assert.ErrorContains(t, res.Err, "never provisioned")
	assert.Empty(t, f.launcher.Sessions())
}

func TestRunStepRequiresReady(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := scenario.NewController(scenario.Script{Name: "early"}, f.cfg)
	err := c.RunStep(context.Background(), steps.ClickLogin())
	assert.ErrorContains(t, err, "while scenario is idle")
	assert.Empty(t, c.Result().Steps)
}

func TestPanickingStep(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := scenario.NewController(scenario.Script{
		Name: "panics",
		Steps: []scenario.Step{{
			Name: "boom",
			Run:  func(context.Context, *scenario.Controller) error { panic("kaboom") },
		}},
	}, f.cfg).Run(context.Background())

	assert.Equal(t, scenario.StatusFailed, res.Status)
	var perr *scenario.StepPanicError
	require.ErrorAs(t, res.Err, &perr)
	assert.Equal(t, "kaboom", perr.Value)
	assert.Equal(t, 1, f.session(t).CloseCalls())
}

func TestObservationDelay(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cfg.ObservationDelay = 20 * time.Millisecond
	noop := scenario.Step{Name: "noop"}

	start := time.Now()
	res := scenario.NewController(scenario.Script{
		Name:  "slow",
		Steps: []scenario.Step{noop, noop},
	}, f.cfg).Run(context.Background())

	assert.Equal(t, scenario.StatusPassed, res.Status)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestSessionOptionsAreScoped(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cfg.Options.WindowWidth = 800
	scenario.NewController(scenario.Script{Name: "opts"}, f.cfg).Run(context.Background())

	opts := f.launcher.Options()
	require.Len(t, opts, 1)
	assert.True(t, opts[0].Maximize)
	assert.True(t, opts[0].DisableNotifications)
	assert.True(t, opts[0].SuppressVerboseLogging)
	assert.Equal(t, 800, opts[0].WindowWidth)
}
