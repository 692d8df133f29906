// Package config consolidates the harness configuration from defaults, a
// JSON or YAML file, WEBACCEPT_* environment variables and CLI flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/afero"
	"gopkg.in/guregu/null.v3"
	"gopkg.in/yaml.v3"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/internal/lib/trace"
	"github.com/liuxd6825/webaccept/lib/types"
	"github.com/liuxd6825/webaccept/log"
	"github.com/liuxd6825/webaccept/page"
	"github.com/liuxd6825/webaccept/report"
	"github.com/liuxd6825/webaccept/steps"
)

// Browser backends.
const (
	BackendCDP       = "cdp"
	BackendWebDriver = "webdriver"
)

// Scenario engines.
const (
	EngineGodog   = "godog"
	EngineBuiltin = "builtin"
)

// Config is the harness configuration. Unset fields are not Valid, so that
// a later source only overrides what it actually sets.
type Config struct {
	// Login flow.
	BaseURL       null.String `json:"baseURL,omitempty" envconfig:"WEBACCEPT_BASE_URL"`
	ExpectedError null.String `json:"expectedError,omitempty" envconfig:"WEBACCEPT_EXPECTED_ERROR"`
	Username      null.String `json:"username,omitempty" envconfig:"WEBACCEPT_USERNAME"`
	Password      null.String `json:"password,omitempty" envconfig:"WEBACCEPT_PASSWORD"`

	// Synchronization.
	ActionTimeout    types.NullDuration `json:"actionTimeout,omitempty" envconfig:"WEBACCEPT_ACTION_TIMEOUT"`
	PollInterval     types.NullDuration `json:"pollInterval,omitempty" envconfig:"WEBACCEPT_POLL_INTERVAL"`
	ObservationDelay types.NullDuration `json:"observationDelay,omitempty" envconfig:"WEBACCEPT_OBSERVATION_DELAY"`

	// Browser session.
	Backend                null.String `json:"backend,omitempty" envconfig:"WEBACCEPT_BACKEND"`
	Headless               null.Bool   `json:"headless,omitempty" envconfig:"WEBACCEPT_HEADLESS"`
	Maximize               null.Bool   `json:"maximize,omitempty" envconfig:"WEBACCEPT_MAXIMIZE"`
	DisableNotifications   null.Bool   `json:"disableNotifications,omitempty" envconfig:"WEBACCEPT_DISABLE_NOTIFICATIONS"`
	SuppressVerboseLogging null.Bool   `json:"suppressVerboseLogging,omitempty" envconfig:"WEBACCEPT_SUPPRESS_VERBOSE_LOGGING"`
	ExecutablePath         null.String `json:"executablePath,omitempty" envconfig:"WEBACCEPT_EXECUTABLE_PATH"`
	WebDriverURL           null.String `json:"webdriverURL,omitempty" envconfig:"WEBACCEPT_WEBDRIVER_URL"`
	DevToolsURL            null.String `json:"devtoolsURL,omitempty" envconfig:"WEBACCEPT_DEVTOOLS_URL"`

	// Run.
	Engine      null.String `json:"engine,omitempty" envconfig:"WEBACCEPT_ENGINE"`
	Concurrency null.Int    `json:"concurrency,omitempty" envconfig:"WEBACCEPT_CONCURRENCY"`
	Features    []string    `json:"features,omitempty" envconfig:"WEBACCEPT_FEATURES"`
	Tags        []string    `json:"tags,omitempty" envconfig:"WEBACCEPT_TAGS"`

	// Outputs.
	ReportPath   null.String `json:"reportPath,omitempty" envconfig:"WEBACCEPT_REPORT_PATH"`
	MetricsPath  null.String `json:"metricsPath,omitempty" envconfig:"WEBACCEPT_METRICS_PATH"`
	ArtifactDir  null.String `json:"artifactDir,omitempty" envconfig:"WEBACCEPT_ARTIFACT_DIR"`
	TracesOutput null.String `json:"tracesOutput,omitempty" envconfig:"WEBACCEPT_TRACES_OUTPUT"`
}

// NewConfig returns the defaults. None of the fields are Valid.
func NewConfig() Config {
	return Config{
		BaseURL:       null.NewString(steps.DefaultLoginURL, false),
		ExpectedError: null.NewString(steps.DefaultExpectedError, false),
		Username:      null.NewString(steps.DefaultUsername, false),
		Password:      null.NewString(steps.DefaultPassword, false),

		ActionTimeout:    types.NewNullDuration(page.DefaultTimeout, false),
		PollInterval:     types.NewNullDuration(page.DefaultPollInterval, false),
		ObservationDelay: types.NewNullDuration(0, false),

		Backend:                null.NewString(BackendCDP, false),
		Headless:               null.NewBool(true, false),
		Maximize:               null.NewBool(true, false),
		DisableNotifications:   null.NewBool(true, false),
		SuppressVerboseLogging: null.NewBool(true, false),

		Engine:      null.NewString(EngineGodog, false),
		Concurrency: null.NewInt(1, false),
		Features:    []string{"features"},

		ReportPath:   null.NewString(report.DefaultPath, false),
		TracesOutput: null.NewString("none", false),
	}
}

// Apply overrides the receiver with every Valid field of cfg.
func (c Config) Apply(cfg Config) Config {
	if cfg.BaseURL.Valid {
		c.BaseURL = cfg.BaseURL
	}
	if cfg.ExpectedError.Valid {
		c.ExpectedError = cfg.ExpectedError
	}
	if cfg.Username.Valid {
		c.Username = cfg.Username
	}
	if cfg.Password.Valid {
		c.Password = cfg.Password
	}
	if cfg.ActionTimeout.Valid {
		c.ActionTimeout = cfg.ActionTimeout
	}
	if cfg.PollInterval.Valid {
		c.PollInterval = cfg.PollInterval
	}
	if cfg.ObservationDelay.Valid {
		c.ObservationDelay = cfg.ObservationDelay
	}
	if cfg.Backend.Valid {
		c.Backend = cfg.Backend
	}
	if cfg.Headless.Valid {
		c.Headless = cfg.Headless
	}
	if cfg.Maximize.Valid {
		c.Maximize = cfg.Maximize
	}
	if cfg.DisableNotifications.Valid {
		c.DisableNotifications = cfg.DisableNotifications
	}
	if cfg.SuppressVerboseLogging.Valid {
		c.SuppressVerboseLogging = cfg.SuppressVerboseLogging
	}
	if cfg.ExecutablePath.Valid {
		c.ExecutablePath = cfg.ExecutablePath
	}
	if cfg.WebDriverURL.Valid {
		c.WebDriverURL = cfg.WebDriverURL
	}
	if cfg.DevToolsURL.Valid {
		c.DevToolsURL = cfg.DevToolsURL
	}
	if cfg.Engine.Valid {
		c.Engine = cfg.Engine
	}
	if cfg.Concurrency.Valid {
		c.Concurrency = cfg.Concurrency
	}
	if len(cfg.Features) > 0 {
		c.Features = cfg.Features
	}
	if len(cfg.Tags) > 0 {
		c.Tags = cfg.Tags
	}
	if cfg.ReportPath.Valid {
		c.ReportPath = cfg.ReportPath
	}
	if cfg.MetricsPath.Valid {
		c.MetricsPath = cfg.MetricsPath
	}
	if cfg.ArtifactDir.Valid {
		c.ArtifactDir = cfg.ArtifactDir
	}
	if cfg.TracesOutput.Valid {
		c.TracesOutput = cfg.TracesOutput
	}
	return c
}

// ParseJSON parses the supplied JSON into a Config.
func ParseJSON(data []byte) (Config, error) {
	conf := Config{}
	err := json.Unmarshal(data, &conf)
	return conf, err
}

// ParseYAML parses the supplied YAML into a Config. Keys are the same as in
// the JSON form.
func ParseYAML(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, err
	}
	if raw == nil {
		return Config{}, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return Config{}, err
	}
	return ParseJSON(data)
}

// ReadFile reads a config file; .yaml and .yml files are parsed as YAML,
// everything else as JSON.
func ReadFile(fs afero.Fs, path string) (Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Config{}, fmt.Errorf("couldn't read config file %s: %w", path, err)
	}
	var conf Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		conf, err = ParseYAML(data)
	default:
		conf, err = ParseJSON(data)
	}
	if err != nil {
		return Config{}, fmt.Errorf("couldn't parse config file %s: %w", path, err)
	}
	return conf, nil
}

// FromEnv reads the WEBACCEPT_* variables out of env.
func FromEnv(env map[string]string) (Config, error) {
	conf := Config{}
	err := envconfig.Process("", &conf, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	return conf, err
}

// GetConsolidatedConfig combines {defaults + config file + environment vars +
// CLI flags}, and returns the final result. An empty path skips the file.
func GetConsolidatedConfig(fs afero.Fs, path string, env map[string]string, cliConf Config) (Config, error) {
	result := NewConfig()
	if path != "" {
		fileConf, err := ReadFile(fs, path)
		if err != nil {
			return result, err
		}
		result = result.Apply(fileConf)
	}

	envConf, err := FromEnv(env)
	if err != nil {
		return result, err
	}
	result = result.Apply(envConf).Apply(cliConf)
	return result, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.BaseURL.String == "" {
		errs = append(errs, errors.New("baseURL must not be empty"))
	}
	switch c.Backend.String {
	case BackendCDP, BackendWebDriver:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q, use %q or %q", c.Backend.String, BackendCDP, BackendWebDriver))
	}
	switch c.Engine.String {
	case EngineGodog, EngineBuiltin:
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q, use %q or %q", c.Engine.String, EngineGodog, EngineBuiltin))
	}
	if c.ActionTimeout.TimeDuration() <= 0 {
		errs = append(errs, errors.New("actionTimeout must be positive"))
	}
	if c.PollInterval.TimeDuration() <= 0 {
		errs = append(errs, errors.New("pollInterval must be positive"))
	}
	if c.ObservationDelay.TimeDuration() < 0 {
		errs = append(errs, errors.New("observationDelay must not be negative"))
	}
	if c.Concurrency.Int64 <= 0 {
		errs = append(errs, errors.New("concurrency must be positive"))
	}
	if u := c.DevToolsURL.String; u != "" && !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://") {
		errs = append(errs, fmt.Errorf("devtoolsURL %q must be a ws:// or wss:// address", u))
	}
	if _, err := trace.ParseOutput(c.TracesOutput.String); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// BrowserOptions returns the session options described by c.
func (c Config) BrowserOptions() browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = c.Headless.Bool
	opts.Maximize = c.Maximize.Bool
	opts.DisableNotifications = c.DisableNotifications.Bool
	opts.SuppressVerboseLogging = c.SuppressVerboseLogging.Bool
	opts.ExecutablePath = c.ExecutablePath.String
	switch c.Backend.String {
	case BackendWebDriver:
		opts.RemoteURL = c.WebDriverURL.String
	case BackendCDP:
		opts.RemoteURL = c.DevToolsURL.String
	}
	return opts
}

// Waiter returns the readiness waiter described by c.
func (c Config) Waiter(logger *log.Logger) *page.Waiter {
	return page.NewWaiter(c.ActionTimeout.TimeDuration(), c.PollInterval.TimeDuration(), logger)
}

// StepSettings returns the parameters of the built-in scripts.
func (c Config) StepSettings() steps.Settings {
	return steps.Settings{
		LoginURL:      c.BaseURL.String,
		Username:      c.Username.String,
		Password:      c.Password.String,
		ExpectedError: c.ExpectedError.String,
	}
}

// TracesExporter returns where scenario spans are shipped, or nil when
// tracing is off.
func (c Config) TracesExporter() (*trace.Exporter, error) {
	return trace.ParseOutput(c.TracesOutput.String)
}

// ObservationDelayDuration returns the configured pause after each step.
func (c Config) ObservationDelayDuration() time.Duration {
	return c.ObservationDelay.TimeDuration()
}
