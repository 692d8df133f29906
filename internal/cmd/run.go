package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"

	"github.com/liuxd6825/webaccept/config"
	"github.com/liuxd6825/webaccept/cucumber"
	"github.com/liuxd6825/webaccept/errext"
	"github.com/liuxd6825/webaccept/errext/exitcodes"
	"github.com/liuxd6825/webaccept/features"
	"github.com/liuxd6825/webaccept/internal/lib/trace"
	"github.com/liuxd6825/webaccept/lib/types"
	"github.com/liuxd6825/webaccept/log"
	"github.com/liuxd6825/webaccept/page"
	"github.com/liuxd6825/webaccept/report"
	"github.com/liuxd6825/webaccept/scenario"
	"github.com/liuxd6825/webaccept/steps"
	"github.com/liuxd6825/webaccept/suite"
)

const tracerShutdownWait = 5 * time.Second

// cmdRun handles the `webaccept run` sub-command
type cmdRun struct {
	gs     *GlobalState
	format string
}

func (c *cmdRun) run(cmd *cobra.Command, args []string) (err error) {
	gs := c.gs
	logger := log.New(gs.Logger, nil)

	cliConf, err := getConfig(cmd.Flags())
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	if len(args) > 0 {
		cliConf.Features = args
	}
	conf, err := config.GetConsolidatedConfig(gs.FS, gs.Flags.ConfigFilePath, gs.Env, cliConf)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	if err := conf.Validate(); err != nil {
		return errext.WithExitCodeIfNone(
			errext.WithHint(fmt.Errorf("invalid configuration: %w", err), "see `webaccept run --help` for the accepted values"),
			exitcodes.InvalidConfig,
		)
	}

	exporter, err := conf.TracesExporter()
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	tp, err := trace.NewProvider(gs.Ctx, exporter)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	if exporter != nil {
		logger.Infof("Run:traces", "shipping scenario spans to %s", exporter)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), tracerShutdownWait)
		defer cancel()
		if serr := tp.Shutdown(ctx); serr != nil {
			logger.Warnf("Run:traces", "shutting down tracer provider: %v", serr)
		}
	}()

	launcher, err := gs.NewLauncher(conf, logger)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.ProvisioningFailed)
	}

	scfg := scenario.Config{
		Launcher:         launcher,
		Options:          conf.BrowserOptions(),
		Waiter:           conf.Waiter(logger),
		ObservationDelay: conf.ObservationDelayDuration(),
		Logger:           logger,
		Tracer:           tp.Tracer(),
	}
	notifiers := []suite.Notifier{
		&report.CucumberJSON{FS: gs.FS, Path: conf.ReportPath.String, Logger: logger},
		&report.ArtifactDir{FS: gs.FS, Dir: conf.ArtifactDir.String, Logger: logger},
		&report.Announcer{FS: gs.FS, Path: conf.ReportPath.String, Logger: logger},
	}
	metrics := suite.NewMetrics()

	ctx, cancel := context.WithCancel(gs.Ctx)
	defer cancel()
	stopSignals := c.handleSignals(cancel)
	defer stopSignals()

	var summary *suite.Summary
	switch conf.Engine.String {
	case config.EngineBuiltin:
		scripts := steps.Filter(steps.Scripts(conf.StepSettings()), conf.Tags)
		runner := &suite.Runner{
			Config:      scfg,
			Concurrency: int(conf.Concurrency.Int64),
			Logger:      logger,
			Metrics:     metrics,
			Notifiers:   notifiers,
		}
		summary, err = runner.Run(ctx, scripts)
		if err == nil && !summary.OK() {
			err = errext.WithExitCodeIfNone(
				fmt.Errorf("%d of %d scenarios failed", summary.Failed(), summary.Total()), exitcodes.ScenariosFailed)
		}
	default:
		binding := cucumber.NewBinding(scfg, conf.StepSettings(), logger)
		binding.Metrics = metrics
		summary, err = binding.Run(ctx, cucumber.Options{
			Paths:       c.existingPaths(conf.Features, logger),
			Bundled:     features.FS,
			Tags:        conf.Tags,
			Concurrency: int(conf.Concurrency.Int64),
			Format:      c.format,
			Output:      gs.Stdout,
		}, notifiers...)
	}

	if path := conf.MetricsPath.String; path != "" {
		if werr := metrics.WriteTextfile(path); werr != nil {
			err = errors.Join(err, errext.WithExitCodeIfNone(
				fmt.Errorf("writing metrics to %s: %w", path, werr), exitcodes.ReportFailed))
		}
	}
	if summary != nil {
		c.printSummary(summary)
	}
	return err
}

// existingPaths drops the feature paths that don't exist so a run without
// a features directory falls back to the bundled features.
func (c *cmdRun) existingPaths(paths []string, logger *log.Logger) []string {
	var out []string
	for _, p := range paths {
		if _, err := c.gs.FS.Stat(p); err != nil {
			logger.Debugf("Run:features", "skipping %s: %v", p, err)
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		logger.Infof("Run:features", "no feature files found, running the bundled features")
	}
	return out
}

// handleSignals cancels the run on the first interrupt and aborts the process
// on the second one.
func (c *cmdRun) handleSignals(cancel context.CancelFunc) func() {
	sigC := make(chan os.Signal, 2)
	done := make(chan struct{})
	c.gs.SignalNotify(sigC, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigC:
			c.gs.Logger.WithField("sig", sig).Warn("Stopping scenarios in response to signal...")
			cancel()
		case <-done:
			return
		}
		select {
		case sig := <-sigC:
			c.gs.Logger.WithField("sig", sig).Error("Aborting in response to signal")
			c.gs.OSExit(int(exitcodes.ExternalAbort))
		case <-done:
		}
	}()
	return func() {
		close(done)
		c.gs.SignalStop(sigC)
	}
}

func (c *cmdRun) printSummary(s *suite.Summary) {
	noColor := c.gs.Flags.NoColor || !c.gs.Stdout.IsTTY
	passed := getColor(noColor, color.FgGreen)
	failed := getColor(noColor, color.FgRed)
	_, _ = fmt.Fprintf(c.gs.Stdout, "\nscenarios: %s, %s, %d total in %s\n",
		passed.Sprintf("%d passed", s.Passed()),
		failed.Sprintf("%d failed", s.Failed()),
		s.Total(), s.Duration().Round(time.Millisecond))
}

func getColor(noColor bool, attributes ...color.Attribute) *color.Color {
	c := color.New(attributes...)
	if noColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}

func runCmdFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.String("base-url", steps.DefaultLoginURL, "login page URL")
	flags.String("expected-error", steps.DefaultExpectedError, "error message expected for invalid credentials")
	flags.String("username", steps.DefaultUsername, "username typed by the built-in scenarios")
	flags.String("password", steps.DefaultPassword, "password typed by the built-in scenarios")
	flags.Duration("action-timeout", page.DefaultTimeout, "how long an interaction waits for its element")
	flags.Duration("poll-interval", page.DefaultPollInterval, "how often an element's readiness is checked")
	flags.Duration("observation-delay", 0, "pause after each step, for watching a headful browser")
	flags.String("backend", config.BackendCDP, "browser backend: cdp or webdriver")
	flags.Bool("headless", true, "run the browser without a window")
	flags.Bool("maximize", true, "maximize the browser window")
	flags.String("executable-path", "", "browser executable to launch")
	flags.String("webdriver-url", "", "remote WebDriver server, e.g. http://localhost:9515")
	flags.String("devtools-url", "", "attach the cdp backend to a running browser, e.g. ws://localhost:9222/devtools/browser/<id>")
	flags.String("engine", config.EngineGodog, "scenario engine: godog runs feature files, builtin runs the compiled scripts")
	flags.Int64P("concurrency", "j", 1, "number of scenarios run at the same time")
	flags.StringArrayP("tag", "t", nil, "only run scenarios with this tag, can be repeated")
	flags.String("report", report.DefaultPath, "cucumber JSON report path")
	flags.String("metrics", "", "write Prometheus metrics of the run to this textfile")
	flags.String("artifact-dir", "", "write the screenshots of failed scenarios to this directory")
	flags.String("traces-output", "none",
		"ship scenario traces: none, otel, grpc(s)://host:port or http(s)://host:port/path")
	return flags
}

// getConfig returns a Config holding only the flags set on the command line.
func getConfig(flags *pflag.FlagSet) (config.Config, error) {
	var (
		conf config.Config
		errs []error
	)
	str := func(name string, dst *null.String) {
		if !flags.Changed(name) {
			return
		}
		v, err := flags.GetString(name)
		errs = append(errs, err)
		*dst = null.StringFrom(v)
	}
	boolean := func(name string, dst *null.Bool) {
		if !flags.Changed(name) {
			return
		}
		v, err := flags.GetBool(name)
		errs = append(errs, err)
		*dst = null.BoolFrom(v)
	}
	duration := func(name string, dst *types.NullDuration) {
		if !flags.Changed(name) {
			return
		}
		v, err := flags.GetDuration(name)
		errs = append(errs, err)
		*dst = types.NullDurationFrom(v)
	}

	str("base-url", &conf.BaseURL)
	str("expected-error", &conf.ExpectedError)
	str("username", &conf.Username)
	str("password", &conf.Password)
	duration("action-timeout", &conf.ActionTimeout)
	duration("poll-interval", &conf.PollInterval)
	duration("observation-delay", &conf.ObservationDelay)
	str("backend", &conf.Backend)
	boolean("headless", &conf.Headless)
	boolean("maximize", &conf.Maximize)
	str("executable-path", &conf.ExecutablePath)
	str("webdriver-url", &conf.WebDriverURL)
	str("devtools-url", &conf.DevToolsURL)
	str("engine", &conf.Engine)
	str("report", &conf.ReportPath)
	str("metrics", &conf.MetricsPath)
	str("artifact-dir", &conf.ArtifactDir)
	str("traces-output", &conf.TracesOutput)

	if flags.Changed("concurrency") {
		v, err := flags.GetInt64("concurrency")
		errs = append(errs, err)
		conf.Concurrency = null.IntFrom(v)
	}
	if flags.Changed("tag") {
		v, err := flags.GetStringArray("tag")
		errs = append(errs, err)
		conf.Tags = v
	}
	return conf, errors.Join(errs...)
}

func getCmdRun(gs *GlobalState) *cobra.Command {
	c := &cmdRun{gs: gs}

	runCmd := &cobra.Command{
		Use:   "run [feature files or directories...]",
		Short: "Run the acceptance scenarios",
		Long: `Run the acceptance scenarios against the login page.

Feature files are run through godog; when none of the given paths exist the
feature files bundled with the binary are used. Each scenario gets its own
browser session, and a failed scenario gets a screenshot attached to the
cucumber JSON report.`,
		Example: `
  # Run the bundled feature files headless with Chromium
  webaccept run

  # Run the smoke scenarios against a local chromedriver
  webaccept run --backend webdriver --webdriver-url http://localhost:9515 -t @smoke

  # Run the compiled scenarios, two at a time, with a config file
  webaccept run -c webaccept.yaml --engine builtin -j 2`,
		RunE: c.run,
	}

	runCmd.Flags().SortFlags = false
	runCmd.Flags().AddFlagSet(runCmdFlagSet())
	runCmd.Flags().StringVar(&c.format, "format", "progress", "godog output format: progress, pretty, junit or cucumber")
	return runCmd
}
