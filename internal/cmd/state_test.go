package cmd

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/browser/browsertest"
	"github.com/liuxd6825/webaccept/config"
	"github.com/liuxd6825/webaccept/lib/testutils"
	"github.com/liuxd6825/webaccept/log"
)

// globalTestState is a GlobalState with in-memory IO, a MemMapFs and a fake
// browser launcher.
type globalTestState struct {
	*GlobalState
	Stdout, Stderr *bytes.Buffer
	LoggerHook     *testutils.SimpleLogrusHook
	Launcher       *browsertest.Launcher

	ExpectedExitCode int
}

func newGlobalTestState(t *testing.T, args ...string) *globalTestState {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := &logrus.Logger{
		Out:       os.Stdout,
		Formatter: &logrus.TextFormatter{DisableColors: true},
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}
	hook := testutils.NewLogHook(logrus.AllLevels...)
	logger.AddHook(hook)

	ts := &globalTestState{
		Stdout:     new(bytes.Buffer),
		Stderr:     new(bytes.Buffer),
		LoggerHook: hook,
		Launcher:   &browsertest.Launcher{},
	}

	outMutex := &sync.Mutex{}
	defaultFlags := GetDefaultFlags()
	ts.GlobalState = &GlobalState{
		Ctx:          ctx,
		FS:           afero.NewMemMapFs(),
		Getwd:        func() (string, error) { return "/test/dir", nil },
		BinaryName:   "webaccept",
		CmdArgs:      append([]string{"webaccept"}, args...),
		Env:          map[string]string{},
		DefaultFlags: defaultFlags,
		Flags:        defaultFlags,
		OutMutex:     outMutex,
		Stdout:       &consoleWriter{Writer: ts.Stdout, IsTTY: false, Mutex: outMutex},
		Stderr:       &consoleWriter{Writer: ts.Stderr, IsTTY: false, Mutex: outMutex},
		Stdin:        new(bytes.Buffer),
		OSExit: func(code int) {
			if code != ts.ExpectedExitCode {
				t.Errorf("unexpected exit code %d, expected %d", code, ts.ExpectedExitCode)
			}
		},
		SignalNotify:   func(chan<- os.Signal, ...os.Signal) {},
		SignalStop:     func(chan<- os.Signal) {},
		Logger:         logger,
		FallbackLogger: logger,
		NewLauncher: func(config.Config, *log.Logger) (browser.Launcher, error) {
			return ts.Launcher, nil
		},
	}
	return ts
}
