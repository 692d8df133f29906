package scenario

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/liuxd6825/webaccept/errext"
)

// ErrControllerClosed is returned when a finalized controller is used again.
var ErrControllerClosed = errors.New("scenario controller is closed")

// ErrNoSession is returned by operations that need an open browser session
// when provisioning never acquired one.
var ErrNoSession = errors.New("no browser session")

// ProvisioningError is returned when the browser session could not be
// opened or configured.
type ProvisioningError struct {
	Err error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("driver initialization failed: %v", e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// Hint implements errext.HasHint.
func (e *ProvisioningError) Hint() string {
	const hint = "make sure Chrome is installed, or point --executable-path, --devtools-url or --webdriver-url at a browser"
	if inner := errext.Hint(e.Err); inner != "" {
		return hint + " (" + inner + ")"
	}
	return hint
}

// AssertionError is returned when an observed value differs from the
// expected one.
type AssertionError struct {
	Message  string
	Expected any
	Actual   any
}

func (e *AssertionError) Error() string {
	if e.Expected == nil && e.Actual == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: expected %q but found %q", e.Message, fmt.Sprint(e.Expected), fmt.Sprint(e.Actual))
}

// Fields implements errext.HasFields.
func (e *AssertionError) Fields() logrus.Fields {
	if e.Expected == nil && e.Actual == nil {
		return nil
	}
	return logrus.Fields{"expected": e.Expected, "actual": e.Actual}
}

// ArtifactError is a fault of diagnostic capture or session release. It is
// only ever logged.
type ArtifactError struct {
	Op  string
	Err error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// Fields implements errext.HasFields.
func (e *ArtifactError) Fields() logrus.Fields {
	return logrus.Fields{"op": e.Op}
}

// StepPanicError wraps a value recovered from a panicking step.
type StepPanicError struct {
	Step  string
	Value any
}

func (e *StepPanicError) Error() string {
	return fmt.Sprintf("step %q panicked: %v", e.Step, e.Value)
}

// Fields implements errext.HasFields.
func (e *StepPanicError) Fields() logrus.Fields {
	return logrus.Fields{"step": e.Step}
}

var (
	_ errext.HasHint   = &ProvisioningError{}
	_ errext.HasFields = &AssertionError{}
	_ errext.HasFields = &ArtifactError{}
	_ errext.HasFields = &StepPanicError{}
)

// AssertTrue returns an *AssertionError carrying msg unless cond holds.
func AssertTrue(cond bool, msg string) error {
	if cond {
		return nil
	}
	return &AssertionError{Message: msg}
}

// AssertEqual returns an *AssertionError unless actual equals expected.
func AssertEqual[T comparable](expected, actual T, msg string) error {
	if expected == actual {
		return nil
	}
	return &AssertionError{Message: msg, Expected: expected, Actual: actual}
}
