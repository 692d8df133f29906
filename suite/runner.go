// Package suite runs a batch of scenarios on a bounded worker pool and
// reports the aggregated outcome to post-run notifiers.
package suite

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/liuxd6825/webaccept/errext"
	"github.com/liuxd6825/webaccept/errext/exitcodes"
	"github.com/liuxd6825/webaccept/log"
	"github.com/liuxd6825/webaccept/scenario"
)

// DefaultConcurrency is the number of scenarios run at the same time when
// nothing else is configured.
const DefaultConcurrency = 1

// Runner executes scenario scripts. Each scenario gets its own controller
// and browser session; only the Summary is shared.
type Runner struct {
	Config      scenario.Config
	Concurrency int
	Logger      *log.Logger
	Metrics     *Metrics
	Notifiers   []Notifier
}

// Run executes scripts and notifies every notifier once all of them are done.
// A failing scenario never stops its siblings. Cancelling ctx stops
// scheduling new scenarios and makes Run return an *errext.InterruptError;
// notifier faults are returned with the ReportFailed exit code.
func (r *Runner) Run(ctx context.Context, scripts []scenario.Script) (*Summary, error) {
	summary := NewSummary()
	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	r.Logger.Infof("Runner:run", "running %d scenarios with concurrency %d", len(scripts), limit)

	var g errgroup.Group
	g.SetLimit(limit)
	for _, script := range scripts {
		script := script
		if ctx.Err() != nil {
			r.Logger.Warnf("Runner:run", "not starting %q: %v", script.Name, ctx.Err())
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			r.Metrics.Started()
			res := scenario.NewController(script, r.Config).Run(ctx)
			r.Metrics.Observe(res)
			summary.Add(res)
			r.logResult(res)
			return nil
		})
	}
	_ = g.Wait()
	summary.Finish()

	r.Logger.Infof("Runner:run", "%d passed, %d failed in %s",
		summary.Passed(), summary.Failed(), summary.Duration())

	var errs []error
	if ctx.Err() != nil {
		errs = append(errs, &errext.InterruptError{Reason: errext.AbortSuite})
	}
	if err := Notify(context.WithoutCancel(ctx), r.Logger, summary, r.Notifiers...); err != nil {
		errs = append(errs, err)
	}
	return summary, errors.Join(errs...)
}

func (r *Runner) logResult(res *scenario.Result) {
	LogResult(r.Logger, "Runner:scenario", res)
}

// LogResult logs the outcome of res under category. A failure is logged
// with the fields and hint its error carries.
func LogResult(logger *log.Logger, category string, res *scenario.Result) {
	if res.Passed() {
		logger.Infof(category, "%q passed", res.Name)
		return
	}
	msg, fields := errext.Format(res.Err)
	logger.With(fields).Errorf(category, "%q failed: %s (%d attachments)", res.Name, msg, len(res.Attachments))
}

// Notify hands summary to every notifier in order. All of them run even
// when one fails; the joined faults carry the ReportFailed exit code.
func Notify(ctx context.Context, logger *log.Logger, summary *Summary, notifiers ...Notifier) error {
	var errs []error
	for _, n := range notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			logger.Errorf("Runner:notify", "%v", err)
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errext.WithExitCodeIfNone(
		fmt.Errorf("post-run notification failed: %w", errors.Join(errs...)),
		exitcodes.ReportFailed,
	)
}
