// Package cmd implements the webaccept command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/liuxd6825/webaccept/errext"
	"github.com/liuxd6825/webaccept/errext/exitcodes"
	"github.com/liuxd6825/webaccept/log"
	"github.com/liuxd6825/webaccept/version"
)

// ExecuteWithGlobalState runs the root command with an existing GlobalState.
// It is called by main.main().
func ExecuteWithGlobalState(gs *GlobalState) {
	newRootCommand(gs).execute()
}

type rootCommand struct {
	globalState *GlobalState

	cmd      *cobra.Command
	fileHook *log.FileHook
}

func newRootCommand(gs *GlobalState) *rootCommand {
	c := &rootCommand{globalState: gs}

	rootCmd := &cobra.Command{
		Use:               gs.BinaryName,
		Short:             "browser-driven acceptance tests for the login flow",
		Long:              "\n" + getBanner(gs.Flags.NoColor || !gs.Stdout.IsTTY),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
		Version:           version.FullWithCommit(),
	}
	rootCmd.SetVersionTemplate(
		`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "v%s\n" .Version}}`,
	)

	rootCmd.PersistentFlags().AddFlagSet(rootCmdPersistentFlagSet(gs))
	rootCmd.SetArgs(gs.CmdArgs[1:])
	rootCmd.SetOut(gs.Stdout)
	rootCmd.SetErr(gs.Stderr)
	rootCmd.SetIn(gs.Stdin)

	for _, sc := range []func(*GlobalState) *cobra.Command{getCmdRun, getCmdVersion} {
		rootCmd.AddCommand(sc(gs))
	}

	c.cmd = rootCmd
	return c
}

func (c *rootCommand) persistentPreRunE(_ *cobra.Command, _ []string) error {
	if err := c.setupLoggers(); err != nil {
		return err
	}
	c.globalState.Logger.Debugf("webaccept version: v%s", version.FullWithCommit())
	return nil
}

func (c *rootCommand) execute() {
	ctx, cancel := context.WithCancel(c.globalState.Ctx)
	c.globalState.Ctx = ctx

	exitCode := -1
	defer func() {
		cancel()
		c.stopLoggers()
		c.globalState.OSExit(exitCode)
	}()

	defer func() {
		if r := recover(); r != nil {
			exitCode = int(exitcodes.GoPanic)
			err := fmt.Errorf("unexpected webaccept panic: %s\n%s", r, debug.Stack())
			c.globalState.Logger.Error(err)
		}
	}()

	err := c.cmd.Execute()
	if err == nil {
		exitCode = 0
		return
	}

	if code, ok := errext.ExitCode(err); ok {
		exitCode = int(code)
	}

	errText, fields := errext.Format(err)
	c.globalState.Logger.WithFields(fields).Error(errText)
}

func (c *rootCommand) stopLoggers() {
	if c.fileHook == nil {
		return
	}
	if err := c.fileHook.Close(); err != nil {
		c.globalState.FallbackLogger.Errorf("closing log file: %v", err)
	}
	c.fileHook = nil
}

func rootCmdPersistentFlagSet(gs *GlobalState) *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	// `gs.Flags.<value>` is both the destination and the value here, since
	// the config values could have already been set by their respective
	// environment variables. The DefValue is then reset to the real default
	// so that the help message is not messed up.

	flags.StringVar(&gs.Flags.LogOutput, "log-output", gs.Flags.LogOutput,
		"change the output for logs, possible values are 'stderr', 'stdout', 'none', 'file[=./path.fileformat]'")
	flags.Lookup("log-output").DefValue = gs.DefaultFlags.LogOutput

	flags.StringVar(&gs.Flags.LogFormat, "log-format", gs.Flags.LogFormat, "log output format: text, json or raw")
	flags.Lookup("log-format").DefValue = gs.DefaultFlags.LogFormat

	flags.StringVarP(&gs.Flags.ConfigFilePath, "config", "c", gs.Flags.ConfigFilePath, "JSON or YAML config file")
	flags.Lookup("config").DefValue = gs.DefaultFlags.ConfigFilePath
	must(cobra.MarkFlagFilename(flags, "config"))

	flags.BoolVar(&gs.Flags.NoColor, "no-color", gs.Flags.NoColor, "disable colored output")
	flags.Lookup("no-color").DefValue = strconv.FormatBool(gs.DefaultFlags.NoColor)

	flags.BoolVarP(&gs.Flags.Verbose, "verbose", "v", gs.DefaultFlags.Verbose, "enable verbose logging")
	return flags
}

// RawFormatter it does nothing with the message just prints it
type RawFormatter struct{}

// Format renders a single log entry
func (f RawFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return append([]byte(entry.Message), '\n'), nil
}

func (c *rootCommand) setupLoggers() error {
	gs := c.globalState
	if gs.Flags.Verbose {
		gs.Logger.SetLevel(logrus.DebugLevel)
	}

	loggerForceColors := false
	switch line := gs.Flags.LogOutput; {
	case line == "stderr":
		loggerForceColors = !gs.Flags.NoColor && gs.Stderr.IsTTY
		gs.Logger.SetOutput(gs.Stderr)
	case line == "stdout":
		loggerForceColors = !gs.Flags.NoColor && gs.Stdout.IsTTY
		gs.Logger.SetOutput(gs.Stdout)
	case line == "none":
		gs.Logger.SetOutput(io.Discard)
	case strings.HasPrefix(line, "file"):
		hook, err := log.FileHookFromConfigLine(gs.FS, gs.FallbackLogger, line)
		if err != nil {
			return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
		}
		c.fileHook = hook
		gs.Logger.AddHook(hook)
		gs.Logger.SetOutput(io.Discard)
	default:
		return errext.WithExitCodeIfNone(fmt.Errorf("unsupported log output '%s'", line), exitcodes.InvalidConfig)
	}

	switch gs.Flags.LogFormat {
	case "raw":
		gs.Logger.SetFormatter(&RawFormatter{})
		gs.Logger.Debug("Logger format: RAW")
	case "json":
		gs.Logger.SetFormatter(&logrus.JSONFormatter{})
		gs.Logger.Debug("Logger format: JSON")
	default:
		gs.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors: loggerForceColors, DisableColors: gs.Flags.NoColor,
		})
		gs.Logger.Debug("Logger format: TEXT")
	}

	// Sometimes the Go runtime uses the standard log output to log some
	// messages directly.
	stdlog.SetOutput(gs.Logger.Writer())
	return nil
}

func getBanner(noColor bool) string {
	return getColor(noColor, color.FgCyan).Sprint(strings.Join([]string{
		`                 __                                 __ `,
		` _    _____ ___ / /  ___ ________ ___ ___  ___ ____/ /_`,
		`| |/|/ / -_) _ \/ _ \/ _ '/ __/ __/ -_) _ \/ _ '/ __/ __/`,
		`|__,__/\__/_.__/_.__/\_,_/\__/\__/\__/ .__/\_,_/\__/\__/ `,
		`                                     /_/                 `,
	}, "\n"))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
