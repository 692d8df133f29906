package cmd

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/webaccept/errext/exitcodes"
	"github.com/liuxd6825/webaccept/lib/testutils"
	"github.com/liuxd6825/webaccept/report"
	"github.com/liuxd6825/webaccept/steps"
)

func TestRunBuiltinPasses(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t, "run", "--engine", "builtin", "-j", "2")
	ExecuteWithGlobalState(ts.GlobalState)

	assert.Contains(t, ts.Stdout.String(), "3 passed, 0 failed, 3 total")
	ok, err := afero.Exists(ts.FS, report.DefaultPath)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, ts.Launcher.Sessions(), 3)
	assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.InfoLevel, "report available at "+report.DefaultPath))
}

func TestRunBuiltinMismatchFails(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t, "run", "--engine", "builtin", "--expected-error", "Nope", "--artifact-dir", "/artifacts")
	ts.ExpectedExitCode = int(exitcodes.ScenariosFailed)
	ExecuteWithGlobalState(ts.GlobalState)

	assert.Contains(t, ts.Stdout.String(), "1 passed, 2 failed, 3 total")
	files, err := afero.ReadDir(ts.FS, "/artifacts")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestRunGodogBundledFeatures(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t, "run", "--report", "/out/cucumber.json")
	ExecuteWithGlobalState(ts.GlobalState)

	assert.Contains(t, ts.Stdout.String(), "3 passed, 0 failed, 3 total")
	ok, err := afero.Exists(ts.FS, "/out/cucumber.json")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.InfoLevel, "running the bundled features"))
}

func TestRunInvalidConfig(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t, "run", "--backend", "bogus", "-j", "0")
	ts.ExpectedExitCode = int(exitcodes.InvalidConfig)
	ExecuteWithGlobalState(ts.GlobalState)

	entries := ts.LoggerHook.Drain()
	assert.True(t, testutils.LogContains(entries, logrus.ErrorLevel, `unknown backend "bogus"`))
	assert.True(t, testutils.LogContains(entries, logrus.ErrorLevel, "concurrency must be positive"))
	assert.Empty(t, ts.Launcher.Sessions())
}

func TestRunConfigFileAndEnv(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t, "run", "-c", "/webaccept.yaml", "--headless=false")
	require.NoError(t, afero.WriteFile(ts.FS, "/webaccept.yaml", []byte("engine: builtin\ntags: [\"@smoke\"]\n"), 0o644))
	ts.Env["WEBACCEPT_OBSERVATION_DELAY"] = "1ms"
	ExecuteWithGlobalState(ts.GlobalState)

	assert.Contains(t, ts.Stdout.String(), "1 passed, 0 failed, 1 total")
	opts := ts.Launcher.Options()
	require.Len(t, opts, 1)
	assert.False(t, opts[0].Headless)
	assert.True(t, opts[0].Maximize)
	require.Len(t, ts.Launcher.Sessions(), 1)
	assert.Equal(t, []string{steps.DefaultLoginURL}, ts.Launcher.Sessions()[0].Navigations())
}

func TestGetConfigOnlyChangedFlags(t *testing.T) {
	t.Parallel()

	flags := runCmdFlagSet()
	require.NoError(t, flags.Parse([]string{"--backend", "webdriver", "-t", "@smoke", "-t", "@negative", "--action-timeout", "3s"}))
	conf, err := getConfig(flags)
	require.NoError(t, err)
	assert.Equal(t, "webdriver", conf.Backend.String)
	assert.True(t, conf.Backend.Valid)
	assert.Equal(t, []string{"@smoke", "@negative"}, conf.Tags)
	assert.Equal(t, "3s", conf.ActionTimeout.TimeDuration().String())
	assert.False(t, conf.Engine.Valid)
	assert.False(t, conf.Headless.Valid)
	assert.False(t, conf.Concurrency.Valid)
}

func TestRunTracesOutputFromEnv(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t, "run", "--engine", "builtin")
	ts.Env["WEBACCEPT_TRACES_OUTPUT"] = "zipkin"
	ts.ExpectedExitCode = int(exitcodes.InvalidConfig)
	ExecuteWithGlobalState(ts.GlobalState)

	assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.ErrorLevel, `invalid traces output "zipkin"`))
	assert.Empty(t, ts.Launcher.Sessions())
}

func TestRunDevToolsURL(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t, "run", "--engine", "builtin", "-t", "@smoke",
		"--devtools-url", "ws://localhost:9222/devtools/browser/abc", "--traces-output", "none")
	ExecuteWithGlobalState(ts.GlobalState)

	opts := ts.Launcher.Options()
	require.Len(t, opts, 1)
	assert.Equal(t, "ws://localhost:9222/devtools/browser/abc", opts[0].RemoteURL)
}
