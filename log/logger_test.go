package log

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/webaccept/lib/testutils"
)

func newTestLogger(t *testing.T, level logrus.Level) (*Logger, *testutils.SimpleLogrusHook) {
	t.Helper()

	lg, hook := testutils.NewLogrusLogger(t)
	lg.SetLevel(level)

	return New(lg, nil), hook
}

func TestLoggerCategoryFields(t *testing.T) {
	t.Parallel()

	logger, hook := newTestLogger(t, logrus.DebugLevel)
	logger.Debugf("Action:Click", "clicking %q", "login button")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, `clicking "login button"`, entry.Message)
	assert.Equal(t, "Action:Click", entry.Data["category"])
	assert.Contains(t, entry.Data, "elapsed")
}

func TestLoggerLevelGate(t *testing.T) {
	t.Parallel()

	logger, hook := newTestLogger(t, logrus.InfoLevel)
	logger.Debugf("cdp:send", "-> %s", "{}")
	logger.Warnf("Controller:finalize", "closing session: %v", io.EOF)

	lines := hook.Lines()
	assert.Equal(t, []string{"closing session: EOF"}, lines)
}

func TestLoggerCategoryFilter(t *testing.T) {
	t.Parallel()

	logger, hook := newTestLogger(t, logrus.DebugLevel)
	require.NoError(t, logger.SetCategoryFilter("^Controller"))

	logger.Infof("cdp:recv", "<- %s", "{}")
	logger.Infof("Controller:provision", "opening session")
	assert.Equal(t, []string{"opening session"}, hook.Lines())

	require.Error(t, logger.SetCategoryFilter("("))
	require.NoError(t, logger.SetCategoryFilter(""))
	logger.Infof("cdp:recv", "<- %s", "{}")
	assert.Len(t, hook.Drain(), 1)
}

func TestLoggerWith(t *testing.T) {
	t.Parallel()

	logger, hook := newTestLogger(t, logrus.InfoLevel)
	scoped := logger.With(logrus.Fields{"scenario": "invalid login"})
	scoped.Infof("Controller:execute", "step %d", 1)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "invalid login", entry.Data["scenario"])
	assert.Equal(t, "Controller:execute", entry.Data["category"])
}

func TestNilLogger(t *testing.T) {
	t.Parallel()

	var logger *Logger
	assert.NotPanics(t, func() {
		logger.Errorf("any", "message %d", 1)
		assert.Nil(t, logger.With(logrus.Fields{"a": 1}))
	})
}

func TestParseLevels(t *testing.T) {
	t.Parallel()

	levels, err := parseLevels("warning")
	require.NoError(t, err)
	assert.Equal(t, []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}, levels)

	_, err = parseLevels("loud")
	require.EqualError(t, err, `unknown log level "loud", use one of panic, fatal, error, warning, info, debug, trace`)
}
