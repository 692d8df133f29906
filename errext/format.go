package errext

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// HasFields is implemented by errors that carry structured context worth
// logging next to the message, like the action that timed out or the
// value an assertion expected.
type HasFields interface {
	error
	Fields() logrus.Fields
}

// Format splits err into a log message and the fields to log it with: the
// fields of the first HasFields error in the chain, a non-empty hint and
// the exit code.
func Format(err error) (string, logrus.Fields) {
	if err == nil {
		return "", nil
	}

	fields := logrus.Fields{}
	var ferr HasFields
	if errors.As(err, &ferr) {
		for k, v := range ferr.Fields() {
			fields[k] = v
		}
	}
	if hint := Hint(err); hint != "" {
		fields["hint"] = hint
	}
	if code, ok := ExitCode(err); ok {
		fields["exit_code"] = int(code)
	}
	return err.Error(), fields
}
