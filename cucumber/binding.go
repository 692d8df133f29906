// Package cucumber binds Gherkin feature files to the login steps through
// godog. Every godog scenario is backed by its own scenario.Controller.
package cucumber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/cucumber/godog"

	"github.com/liuxd6825/webaccept/errext"
	"github.com/liuxd6825/webaccept/errext/exitcodes"
	"github.com/liuxd6825/webaccept/log"
	"github.com/liuxd6825/webaccept/scenario"
	"github.com/liuxd6825/webaccept/steps"
	"github.com/liuxd6825/webaccept/suite"
)

type controllerKey struct{}

var errNoController = errors.New("no scenario controller in step context")

// Binding registers the login step vocabulary with godog and collects the
// scenario records into Summary.
type Binding struct {
	Config   scenario.Config
	Settings steps.Settings
	Summary  *suite.Summary
	Metrics  *suite.Metrics
	Logger   *log.Logger

	features *featureNames
}

// NewBinding returns a Binding with an empty Summary.
func NewBinding(cfg scenario.Config, settings steps.Settings, logger *log.Logger) *Binding {
	return &Binding{
		Config:   cfg,
		Settings: settings.WithDefaults(),
		Summary:  suite.NewSummary(),
		Logger:   logger,
	}
}

// InitializeScenario is a godog ScenarioInitializer.
func (b *Binding) InitializeScenario(sc *godog.ScenarioContext) {
	sc.Before(b.before)
	sc.After(b.after)

	sc.Step(steps.NavigateExpr, func(ctx context.Context) error {
		return b.run(ctx, steps.NavigateToLogin(b.Settings.LoginURL))
	})
	sc.Step(steps.CredentialsExpr, func(ctx context.Context, username, password string) error {
		return b.run(ctx, steps.EnterCredentials(username, password))
	})
	sc.Step(steps.ClickLoginExpr, func(ctx context.Context) error {
		return b.run(ctx, steps.ClickLogin())
	})
	sc.Step(steps.RememberMeExpr, func(ctx context.Context) error {
		return b.run(ctx, steps.TickRememberMe())
	})
	sc.Step(steps.ElementsVisibleExpr, func(ctx context.Context) error {
		return b.run(ctx, steps.AssertLoginElementsVisible())
	})
	sc.Step(steps.ErrorMessageExpr, func(ctx context.Context, expected string) error {
		return b.run(ctx, steps.AssertErrorMessage(expected))
	})
	sc.Step(steps.ScreenshotExpr, func(ctx context.Context) error {
		return b.run(ctx, steps.TakeScreenshot())
	})
}

// before provisions the controller. A provisioning fault is reported by the
// first step so godog skips the rest and the After hook still finalizes.
func (b *Binding) before(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
	tags := make([]string, 0, len(sc.Tags))
	for _, t := range sc.Tags {
		tags = append(tags, t.Name)
	}
	c := scenario.NewController(scenario.Script{
		Name:    sc.Name,
		Feature: b.features.lookup(sc.Uri),
		URI:     sc.Uri,
		Tags:    tags,
	}, b.Config)
	b.Metrics.Started()
	_ = c.Provision(ctx)
	return context.WithValue(ctx, controllerKey{}, c), nil
}

func (b *Binding) after(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
	c, ok := ctx.Value(controllerKey{}).(*scenario.Controller)
	if !ok {
		return ctx, errNoController
	}
	res := c.Finalize(ctx, err)
	for _, a := range res.Attachments {
		ctx = godog.Attach(ctx, godog.Attachment{
			Body:      a.Data(),
			FileName:  a.Label(),
			MediaType: a.MediaType(),
		})
	}
	b.Metrics.Observe(res)
	b.Summary.Add(res)
	suite.LogResult(b.Logger, "Binding:scenario", res)
	return ctx, nil
}

func (b *Binding) run(ctx context.Context, step scenario.Step) error {
	c, ok := ctx.Value(controllerKey{}).(*scenario.Controller)
	if !ok {
		return errNoController
	}
	if c.State() == scenario.Failed {
		return c.Result().Err
	}
	return c.RunStep(ctx, step)
}

// Options selects what a godog run executes and how it reports progress.
type Options struct {
	// Paths are feature files or directories. When empty the bundled
	// features in Bundled are run.
	Paths       []string
	Bundled     fs.FS
	Tags        []string
	Concurrency int
	Format      string
	Output      io.Writer
}

// Run executes the features with godog, then notifies every notifier with
// the collected Summary. The returned error carries the ScenariosFailed exit
// code when any scenario failed, and InvalidConfig when godog rejected its
// options.
func (b *Binding) Run(ctx context.Context, opts Options, notifiers ...suite.Notifier) (*suite.Summary, error) {
	gopts := godog.Options{
		Format:         opts.Format,
		Output:         opts.Output,
		Paths:          opts.Paths,
		Tags:           strings.Join(opts.Tags, ","),
		Concurrency:    opts.Concurrency,
		Strict:         true,
		DefaultContext: ctx,
	}
	if gopts.Format == "" {
		gopts.Format = "progress"
	}
	if gopts.Output == nil {
		gopts.Output = io.Discard
	}
	if len(gopts.Paths) == 0 && opts.Bundled != nil {
		features, err := bundledFeatures(opts.Bundled)
		if err != nil {
			return nil, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
		}
		gopts.FeatureContents = features
	}
	b.features = newFeatureNames(gopts.FeatureContents)

	b.Logger.Infof("Binding:run", "running features with godog (format %s, concurrency %d)", gopts.Format, gopts.Concurrency)
	status := godog.TestSuite{
		Name:                "webaccept",
		ScenarioInitializer: b.InitializeScenario,
		Options:             &gopts,
	}.Run()
	b.Summary.Finish()
	b.Logger.Infof("Binding:run", "%d passed, %d failed in %s",
		b.Summary.Passed(), b.Summary.Failed(), b.Summary.Duration())

	var errs []error
	switch {
	case status == 2:
		errs = append(errs, errext.WithExitCodeIfNone(
			fmt.Errorf("godog rejected its options (status %d)", status), exitcodes.InvalidConfig))
	case ctx.Err() != nil:
		errs = append(errs, &errext.InterruptError{Reason: errext.AbortSuite})
	case status != 0 || !b.Summary.OK():
		errs = append(errs, errext.WithExitCodeIfNone(
			fmt.Errorf("%d of %d scenarios failed", b.Summary.Failed(), b.Summary.Total()), exitcodes.ScenariosFailed))
	}
	if err := suite.Notify(context.WithoutCancel(ctx), b.Logger, b.Summary, notifiers...); err != nil {
		errs = append(errs, err)
	}
	return b.Summary, errors.Join(errs...)
}

// bundledFeatures reads every *.feature file at the root of fsys.
func bundledFeatures(fsys fs.FS) ([]godog.Feature, error) {
	names, err := fs.Glob(fsys, "*.feature")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.New("no bundled feature files")
	}
	sort.Strings(names)
	features := make([]godog.Feature, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		features = append(features, godog.Feature{Name: path.Join("features", name), Contents: data})
	}
	return features, nil
}
