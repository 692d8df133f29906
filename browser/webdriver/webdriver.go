// Package webdriver is a browser backend driving Chrome through a WebDriver
// server, either a chromedriver it starts or a remote one.
package webdriver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/nu7hatch/gouuid"
	"github.com/sclevine/agouti"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/log"
)

// Launcher starts one WebDriver session per browser session.
type Launcher struct {
	Logger *log.Logger
}

var _ browser.Launcher = &Launcher{}

// NewLauncher returns a Launcher logging to logger.
func NewLauncher(logger *log.Logger) *Launcher {
	return &Launcher{Logger: logger}
}

// Open implements browser.Launcher. With opts.RemoteURL set the session is
// created on that WebDriver server, otherwise chromedriver is started from
// PATH and stopped again when the session closes.
func (l *Launcher) Open(ctx context.Context, opts browser.Options) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	chrome := map[string]any{"args": chromeArgs(opts)}
	if opts.ExecutablePath != "" {
		chrome["binary"] = opts.ExecutablePath
	}
	caps := agouti.NewCapabilities().Browser("chrome")
	caps["goog:chromeOptions"] = chrome
	caps["chromeOptions"] = chrome

	s := &Session{id: id.String(), logger: l.Logger}
	if opts.RemoteURL != "" {
		l.Logger.Debugf("Launcher:open", "creating session on %s", opts.RemoteURL)
		if s.page, err = agouti.NewPage(opts.RemoteURL, agouti.Desired(caps)); err != nil {
			return nil, fmt.Errorf("creating webdriver session: %w", err)
		}
		return s, nil
	}

	driverOpts := []agouti.Option{agouti.Desired(caps)}
	if secs := int(opts.Timeout.Seconds()); secs > 0 {
		driverOpts = append(driverOpts, agouti.Timeout(secs))
	}
	if !opts.SuppressVerboseLogging {
		driverOpts = append(driverOpts, agouti.Debug)
	}
	driver := agouti.ChromeDriver(driverOpts...)
	if err := driver.Start(); err != nil {
		return nil, fmt.Errorf("starting chromedriver: %w", err)
	}
	if s.page, err = driver.NewPage(); err != nil {
		if serr := driver.Stop(); serr != nil {
			l.Logger.Debugf("Launcher:open", "stopping chromedriver: %v", serr)
		}
		return nil, fmt.Errorf("creating webdriver session: %w", err)
	}
	s.driver = driver
	return s, nil
}

// chromeArgs returns the Chrome command line for opts.
func chromeArgs(opts browser.Options) []string {
	var args []string
	if opts.Headless {
		args = append(args, "--headless=new")
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", opts.WindowWidth, opts.WindowHeight))
	}
	if opts.Maximize {
		args = append(args, "--start-maximized")
	}
	if opts.DisableNotifications {
		args = append(args, "--disable-notifications")
	}
	if opts.SuppressVerboseLogging {
		args = append(args, "--log-level=3", "--silent")
	}
	if os.Getuid() == 0 {
		args = append(args, "--no-sandbox")
	}
	for _, arg := range opts.Args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		if !strings.HasPrefix(arg, "--") {
			arg = "--" + arg
		}
		args = append(args, arg)
	}
	return args
}

// Session is a browser.Session on top of an agouti page.
type Session struct {
	id     string
	page   *agouti.Page
	driver *agouti.WebDriver
	logger *log.Logger

	mu     sync.Mutex
	closed bool
}

var _ browser.Session = &Session{}

func (s *Session) ID() string { return s.id }

func (s *Session) check(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ErrSessionClosed
	}
	return ctx.Err()
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	return s.page.Navigate(url)
}

func (s *Session) Find(ctx context.Context, by browser.By) (browser.Element, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	n, err := s.page.All(by.Selector()).Count()
	if err != nil {
		return nil, classify(by, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", by, browser.ErrNoSuchElement)
	}
	return &element{session: s, by: by, sel: s.page.First(by.Selector())}, nil
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	buf, err := s.page.Session().GetScreenshot()
	if err != nil {
		return nil, fmt.Errorf("cannot capture screenshot: %w", err)
	}
	if len(buf) == 0 {
		return nil, browser.ErrCaptureUnsupported
	}
	return buf, nil
}

// Close ends the WebDriver session and stops chromedriver if this session
// started it.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var errs []error
	if err := s.page.Destroy(); err != nil {
		errs = append(errs, fmt.Errorf("ending webdriver session: %w", err))
	}
	if s.driver != nil {
		if err := s.driver.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping chromedriver: %w", err))
		}
	}
	return errors.Join(errs...)
}

// classify maps agouti's string errors onto the browser package errors so
// waits can tell a missing element from a broken session.
func classify(by browser.By, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "element not found"), strings.Contains(msg, "no such element"):
		return fmt.Errorf("%s: %w", by, browser.ErrNoSuchElement)
	case strings.Contains(msg, "stale element"):
		return fmt.Errorf("%s: %w", by, browser.ErrStaleElement)
	}
	return err
}

type element struct {
	session *Session
	by      browser.By
	sel     *agouti.Selection
}

var _ browser.Element = &element{}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := e.session.check(ctx); err != nil {
		return "", err
	}
	text, err := e.sel.Text()
	return text, e.err(err)
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	if err := e.session.check(ctx); err != nil {
		return false, err
	}
	ok, err := e.sel.Visible()
	return ok, e.err(err)
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	if err := e.session.check(ctx); err != nil {
		return false, err
	}
	ok, err := e.sel.Enabled()
	return ok, e.err(err)
}

func (e *element) IsSelected(ctx context.Context) (bool, error) {
	if err := e.session.check(ctx); err != nil {
		return false, err
	}
	ok, err := e.sel.Selected()
	return ok, e.err(err)
}

func (e *element) Click(ctx context.Context) error {
	if err := e.session.check(ctx); err != nil {
		return err
	}
	return e.err(e.sel.Click())
}

func (e *element) Clear(ctx context.Context) error {
	if err := e.session.check(ctx); err != nil {
		return err
	}
	return e.err(e.sel.Clear())
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := e.session.check(ctx); err != nil {
		return err
	}
	return e.err(e.sel.SendKeys(text))
}

// err reports a vanished element as stale since it was found before.
func (e *element) err(err error) error {
	if err == nil {
		return nil
	}
	if err = classify(e.by, err); errors.Is(err, browser.ErrNoSuchElement) {
		return fmt.Errorf("%s: %w", e.by, browser.ErrStaleElement)
	}
	return err
}
