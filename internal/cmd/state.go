package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/browser/cdp"
	"github.com/liuxd6825/webaccept/browser/webdriver"
	"github.com/liuxd6825/webaccept/config"
	"github.com/liuxd6825/webaccept/log"
)

// GlobalFlags contains the values of the flags shared by every sub-command.
type GlobalFlags struct {
	ConfigFilePath string
	LogOutput      string
	LogFormat      string
	NoColor        bool
	Verbose        bool
}

// GetDefaultFlags returns the default global flags.
func GetDefaultFlags() GlobalFlags {
	return GlobalFlags{
		LogOutput: "stderr",
	}
}

func getFlags(defaultFlags GlobalFlags, env map[string]string) GlobalFlags {
	result := defaultFlags

	if val, ok := env["WEBACCEPT_CONFIG"]; ok {
		result.ConfigFilePath = val
	}
	if val, ok := env["WEBACCEPT_LOG_OUTPUT"]; ok {
		result.LogOutput = val
	}
	if val, ok := env["WEBACCEPT_LOG_FORMAT"]; ok {
		result.LogFormat = val
	}
	if env["WEBACCEPT_NO_COLOR"] != "" {
		result.NoColor = true
	}
	// Support https://no-color.org/, even an empty value should disable the
	// color output.
	if _, ok := env["NO_COLOR"]; ok {
		result.NoColor = true
	}
	return result
}

// LauncherFactory returns the browser launcher for the configured backend.
type LauncherFactory func(conf config.Config, logger *log.Logger) (browser.Launcher, error)

func defaultLauncher(conf config.Config, logger *log.Logger) (browser.Launcher, error) {
	if conf.Backend.String == config.BackendWebDriver {
		return webdriver.NewLauncher(logger), nil
	}
	return cdp.NewLauncher(logger), nil
}

// consoleWriter syncs writes to stdout and stderr with a shared mutex.
type consoleWriter struct {
	Writer io.Writer
	IsTTY  bool
	Mutex  *sync.Mutex
}

func (w *consoleWriter) Write(p []byte) (n int, err error) {
	w.Mutex.Lock()
	defer w.Mutex.Unlock()
	return w.Writer.Write(p)
}

// GlobalState contains the process-wide dependencies of the CLI. Tests swap
// any of them out to run commands in isolation.
type GlobalState struct {
	Ctx context.Context

	FS         afero.Fs
	Getwd      func() (string, error)
	BinaryName string
	CmdArgs    []string
	Env        map[string]string

	DefaultFlags, Flags GlobalFlags

	OutMutex       *sync.Mutex
	Stdout, Stderr *consoleWriter
	Stdin          io.Reader

	OSExit       func(int)
	SignalNotify func(chan<- os.Signal, ...os.Signal)
	SignalStop   func(chan<- os.Signal)

	Logger         *logrus.Logger
	FallbackLogger logrus.FieldLogger

	NewLauncher LauncherFactory
}

// NewGlobalState returns a GlobalState wired to the real OS.
func NewGlobalState(ctx context.Context) *GlobalState {
	isStdoutTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	isStderrTTY := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	env := BuildEnvMap(os.Environ())
	defaultFlags := GetDefaultFlags()
	flags := getFlags(defaultFlags, env)

	outMutex := &sync.Mutex{}
	stdout := &consoleWriter{colorable.NewColorableStdout(), isStdoutTTY, outMutex}
	stderr := &consoleWriter{colorable.NewColorableStderr(), isStderrTTY, outMutex}
	if flags.NoColor {
		stdout.Writer = colorable.NewNonColorable(os.Stdout)
		stderr.Writer = colorable.NewNonColorable(os.Stderr)
	}

	logger := &logrus.Logger{
		Out: stderr,
		Formatter: &logrus.TextFormatter{
			ForceColors:   isStderrTTY,
			DisableColors: !isStderrTTY || flags.NoColor,
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}

	binary := "webaccept"
	if len(os.Args) > 0 && os.Args[0] != "" {
		binary = os.Args[0]
	}

	return &GlobalState{
		Ctx:          ctx,
		FS:           afero.NewOsFs(),
		Getwd:        os.Getwd,
		BinaryName:   binary,
		CmdArgs:      os.Args,
		Env:          env,
		DefaultFlags: defaultFlags,
		Flags:        flags,
		OutMutex:     outMutex,
		Stdout:       stdout,
		Stderr:       stderr,
		Stdin:        os.Stdin,
		OSExit:       os.Exit,
		SignalNotify: signal.Notify,
		SignalStop:   signal.Stop,
		Logger:       logger,
		FallbackLogger: &logrus.Logger{
			Out:       stderr,
			Formatter: new(logrus.TextFormatter),
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		},
		NewLauncher: defaultLauncher,
	}
}

// BuildEnvMap returns a map from raw environment variable strings.
func BuildEnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}
	return env
}
