package suite

import "context"

// Notifier is told about a finished run, e.g. to write or announce a report.
type Notifier interface {
	Notify(ctx context.Context, s *Summary) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, s *Summary) error

// Notify calls f(ctx, s).
func (f NotifierFunc) Notify(ctx context.Context, s *Summary) error {
	return f(ctx, s)
}
