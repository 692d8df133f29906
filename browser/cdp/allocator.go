package cdp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/log"
)

// process is a running Chromium started by an allocator.
type process struct {
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	wsURL   string
	dataDir string
	done    chan struct{}
	once    sync.Once
}

// stop kills the browser if it is still running and removes its profile.
func (p *process) stop() {
	p.once.Do(func() {
		p.cancel()
		<-p.done
		if p.dataDir != "" {
			_ = os.RemoveAll(p.dataDir)
		}
	})
}

// allocator starts Chromium processes.
type allocator struct {
	execPath string
	logger   *log.Logger
}

func newAllocator(execPath string, logger *log.Logger) *allocator {
	if execPath == "" {
		execPath = findExecPath()
	}
	return &allocator{execPath: execPath, logger: logger}
}

// allocate starts a new Chromium browser process and returns it once it
// listens for DevTools connections.
func (a *allocator) allocate(ctx context.Context, opts browser.Options) (_ *process, rerr error) {
	if a.execPath == "" {
		return nil, errors.New("couldn't find a Chromium executable, set executablePath")
	}
	dataDir, err := os.MkdirTemp("", "webaccept-chromium-*")
	if err != nil {
		return nil, fmt.Errorf("cannot make user data directory: %w", err)
	}
	flags := prepareFlags(opts)
	flags["user-data-dir"] = dataDir
	args, err := parseArgs(flags)
	if err != nil {
		return nil, err
	}

	// The process has to outlive ctx, which only bounds the launch.
	procCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := exec.CommandContext(procCtx, a.execPath, args...) //nolint:gosec
	defer func() {
		if rerr != nil {
			cancel()
			_ = os.RemoveAll(dataDir)
		}
	}()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("cannot pipe stdout: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if len(opts.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	a.logger.Debugf("Allocator:allocate", "starting %s %s", a.execPath, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("cannot start browser executable: %w", err)
	}
	p := &process{cmd: cmd, cancel: cancel, dataDir: dataDir, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = browser.DefaultLaunchTimeout
	}
	waitCtx, waitCancel := context.WithTimeout(ctx, timeout)
	defer waitCancel()

	p.wsURL, err = parseWebsocketURL(waitCtx, stdout)
	if err != nil {
		cancel()
		<-p.done
		return nil, fmt.Errorf("cannot parse websocket url: %w", err)
	}
	go func() {
		// keep draining so that a chatty browser never blocks on a full pipe
		_, _ = io.Copy(io.Discard, stdout)
	}()
	return p, nil
}

// prepareFlags returns the Chromium command line flags for opts.
func prepareFlags(opts browser.Options) map[string]any {
	// After Puppeteer's and Playwright's default behavior.
	f := map[string]any{
		"disable-background-networking":       true,
		"disable-background-timer-throttling": true,
		"disable-breakpad":                    true,
		"disable-default-apps":                true,
		"disable-dev-shm-usage":               true,
		"disable-extensions":                  true,
		"disable-hang-monitor":                true,
		"disable-popup-blocking":              true,
		"disable-prompt-on-repost":            true,
		"force-color-profile":                 "srgb",
		"metrics-recording-only":              true,
		"no-first-run":                        true,
		"no-default-browser-check":            true,
		"enable-automation":                   true,
		"password-store":                      "basic",
		"use-mock-keychain":                   true,
		"headless":                            opts.Headless,
	}
	if opts.Headless {
		f["hide-scrollbars"] = true
		f["mute-audio"] = true
	}
	width, height := opts.WindowWidth, opts.WindowHeight
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}
	f["window-size"] = fmt.Sprintf("%d,%d", width, height)
	if opts.Maximize {
		f["start-maximized"] = true
	}
	if opts.DisableNotifications {
		f["disable-notifications"] = true
	}
	if opts.SuppressVerboseLogging {
		f["log-level"] = "3"
		f["silent-debugger-extension-api"] = true
	}
	setFlagsFromArgs(f, opts.Args)
	return f
}

// setFlagsFromArgs fills flags by parsing "name=value" or "name" args.
func setFlagsFromArgs(flags map[string]any, args []string) {
	for _, arg := range args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(strings.TrimSpace(arg), "--"), "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !hasValue {
			flags[name] = true
			continue
		}
		flags[name] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
}

// parseArgs turns flags into a sorted command line.
func parseArgs(flags map[string]any) ([]string, error) {
	args := make([]string, 0, len(flags)+2)
	for name, value := range flags {
		switch value := value.(type) {
		case string:
			args = append(args, fmt.Sprintf("--%s=%s", name, value))
		case bool:
			if value {
				args = append(args, fmt.Sprintf("--%s", name))
			}
		default:
			return nil, fmt.Errorf("invalid browser command line flag %q", name)
		}
	}
	if _, ok := flags["no-sandbox"]; !ok && os.Getuid() == 0 {
		// Chromium needs --no-sandbox when running as root, e.g. in a container.
		args = append(args, "--no-sandbox")
	}
	if _, ok := flags["remote-debugging-port"]; !ok {
		args = append(args, "--remote-debugging-port=0")
	}
	sort.Strings(args)
	return args, nil
}

// parseWebsocketURL grabs the websocket address from chrome's output.
func parseWebsocketURL(ctx context.Context, rc io.Reader) (string, error) {
	type result struct {
		wsURL string
		err   error
	}
	c := make(chan result, 1)
	go func() {
		const prefix = "DevTools listening on "

		scanner := bufio.NewScanner(rc)
		for scanner.Scan() {
			if s := strings.TrimSpace(scanner.Text()); strings.HasPrefix(s, prefix) {
				c <- result{strings.TrimPrefix(s, prefix), nil}
				return
			}
		}
		err := scanner.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		c <- result{"", fmt.Errorf("browser exited before listening: %w", err)}
	}()
	select {
	case r := <-c:
		return r.wsURL, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("ctx err: %w", ctx.Err())
	}
}

// findExecPath finds the path to a Chromium executable.
func findExecPath() string {
	for _, path := range [...]string{
		// Unix-like
		"headless_shell",
		"headless-shell",
		"chromium",
		"chromium-browser",
		"google-chrome",
		"google-chrome-stable",
		"/usr/bin/google-chrome",

		// Windows
		"chrome",
		"chrome.exe",
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		filepath.Join(os.Getenv("USERPROFILE"), `AppData\Local\Google\Chrome\Application\chrome.exe`),

		// Mac
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	} {
		if found, err := exec.LookPath(path); err == nil {
			return found
		}
	}
	return ""
}
