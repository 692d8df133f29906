package errext

import (
	"errors"

	"github.com/liuxd6825/webaccept/errext/exitcodes"
)

// AbortSuite is the reason used when the run context is cancelled.
const AbortSuite = "suite run aborted"

// InterruptError ends a run that was stopped from the outside, e.g. by
// SIGINT, before every scenario had finished.
type InterruptError struct {
	Reason string
}

var (
	_ HasExitCode = &InterruptError{}
	_ HasHint     = &InterruptError{}
)

func (i *InterruptError) Error() string {
	return i.Reason
}

// ExitCode implements HasExitCode.
func (i *InterruptError) ExitCode() exitcodes.ExitCode {
	return exitcodes.ExternalAbort
}

// Hint implements HasHint.
func (i *InterruptError) Hint() string {
	return "running scenarios were finalized, the ones not yet started were skipped"
}

// IsInterruptError reports whether err is or wraps an *InterruptError.
func IsInterruptError(err error) bool {
	var ierr *InterruptError
	return errors.As(err, &ierr)
}
