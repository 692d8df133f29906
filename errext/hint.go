// Package errext attaches what the CLI needs to know about an error on top
// of its message: a hint for the user, structured log fields and the
// process exit code.
package errext

import "errors"

// HasHint is implemented by errors that can suggest a fix. An empty hint
// means the error has nothing to suggest.
type HasHint interface {
	error
	Hint() string
}

// WithHint wraps err with hint. When err already carries a hint, the new
// one comes first and the older one follows in parentheses. A nil err
// stays nil.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return hinted{error: err, hint: hint}
}

// Hint returns the hint carried by err, or "" when there is none.
func Hint(err error) string {
	var herr HasHint
	if !errors.As(err, &herr) {
		return ""
	}
	return herr.Hint()
}

type hinted struct {
	error
	hint string
}

var _ HasHint = hinted{}

func (h hinted) Unwrap() error {
	return h.error
}

func (h hinted) Hint() string {
	inner := Hint(h.error)
	switch {
	case inner == "":
		return h.hint
	case h.hint == "":
		return inner
	}
	return h.hint + " (" + inner + ")"
}
