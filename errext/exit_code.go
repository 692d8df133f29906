package errext

import (
	"errors"

	"github.com/liuxd6825/webaccept/errext/exitcodes"
)

// HasExitCode is implemented by errors that decide how the process exits.
type HasExitCode interface {
	error
	ExitCode() exitcodes.ExitCode
}

// WithExitCodeIfNone attaches code to err unless some error in its chain
// already decided the exit code. A nil err stays nil.
func WithExitCodeIfNone(err error, code exitcodes.ExitCode) error {
	if err == nil {
		return nil
	}
	if _, ok := ExitCode(err); ok {
		return err
	}
	return exiting{error: err, code: code}
}

// ExitCode returns the exit code carried by err.
func ExitCode(err error) (exitcodes.ExitCode, bool) {
	var ecerr HasExitCode
	if !errors.As(err, &ecerr) {
		return 0, false
	}
	return ecerr.ExitCode(), true
}

type exiting struct {
	error
	code exitcodes.ExitCode
}

var _ HasExitCode = exiting{}

func (e exiting) Unwrap() error {
	return e.error
}

func (e exiting) ExitCode() exitcodes.ExitCode {
	return e.code
}
