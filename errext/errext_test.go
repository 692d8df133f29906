package errext

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/webaccept/errext/exitcodes"
)

func TestWithHint(t *testing.T) {
	t.Parallel()

	assert.NoError(t, WithHint(nil, "ignored"))

	base := errors.New("session could not be created")
	err := WithHint(base, "is chrome installed?")
	require.ErrorIs(t, err, base)

	var herr HasHint
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, "is chrome installed?", herr.Hint())

	wrapped := WithHint(fmt.Errorf("provisioning: %w", err), "set --executable-path")
	require.True(t, errors.As(wrapped, &herr))
	assert.Equal(t, "set --executable-path (is chrome installed?)", herr.Hint())
}

func TestWithExitCodeIfNone(t *testing.T) {
	t.Parallel()

	assert.NoError(t, WithExitCodeIfNone(nil, exitcodes.InvalidConfig))

	base := errors.New("bad backend")
	err := WithExitCodeIfNone(base, exitcodes.InvalidConfig)
	err = WithExitCodeIfNone(err, exitcodes.ScenariosFailed)

	var ecerr HasExitCode
	require.True(t, errors.As(err, &ecerr))
	assert.Equal(t, exitcodes.InvalidConfig, ecerr.ExitCode())
	assert.ErrorIs(t, err, base)
}

func TestFormat(t *testing.T) {
	t.Parallel()

	msg, fields := Format(nil)
	assert.Empty(t, msg)
	assert.Nil(t, fields)

	err := WithExitCodeIfNone(WithHint(errors.New("2 scenarios failed"), "see the report"), exitcodes.ScenariosFailed)
	msg, fields = Format(err)
	assert.Equal(t, "2 scenarios failed", msg)
	assert.Equal(t, logrus.Fields{"hint": "see the report", "exit_code": 99}, fields)

	msg, fields = Format(fmt.Errorf("step 2: %w", &timedOut{action: "click login button"}))
	assert.Equal(t, "step 2: click login button timed out", msg)
	assert.Equal(t, logrus.Fields{"action": "click login button"}, fields)

	_, fields = Format(errors.New("plain"))
	assert.Empty(t, fields)
}

// timedOut has fields but an empty hint.
type timedOut struct {
	action string
}

func (e *timedOut) Error() string         { return e.action + " timed out" }
func (e *timedOut) Hint() string          { return "" }
func (e *timedOut) Fields() logrus.Fields { return logrus.Fields{"action": e.action} }

func TestHintSkipsEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Hint(nil))
	assert.Empty(t, Hint(&timedOut{action: "x"}))
	assert.Equal(t, "wait longer", Hint(WithHint(&timedOut{action: "x"}, "wait longer")))
	assert.Equal(t, "wait longer", Hint(WithHint(WithHint(errors.New("x"), "wait longer"), "")))
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	_, ok := ExitCode(errors.New("x"))
	assert.False(t, ok)

	code, ok := ExitCode(fmt.Errorf("run: %w", WithExitCodeIfNone(errors.New("x"), exitcodes.ReportFailed)))
	assert.True(t, ok)
	assert.Equal(t, exitcodes.ReportFailed, code)
}

func TestInterruptError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("run: %w", &InterruptError{Reason: AbortSuite})
	assert.True(t, IsInterruptError(err))
	assert.False(t, IsInterruptError(errors.New("other")))
	assert.False(t, IsInterruptError(nil))

	var ecerr HasExitCode
	require.True(t, errors.As(err, &ecerr))
	assert.Equal(t, exitcodes.ExternalAbort, ecerr.ExitCode())
	assert.Contains(t, Hint(err), "not yet started were skipped")
}
