package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto"
	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/tidwall/gjson"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/log"
)

const (
	navigationTimeout = 30 * time.Second
	loadPollInterval  = 100 * time.Millisecond
)

// Session is a browser.Session backed by one page target.
type Session struct {
	id       target.ID
	conn     *connection
	exec     cdp.Executor
	proc     *process
	logger   *log.Logger
	closeMu  sync.Mutex
	isClosed bool
}

var _ browser.Session = &Session{}

// ID implements browser.Session.
func (s *Session) ID() string {
	return string(s.id)
}

func (s *Session) closed() bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.isClosed
}

func (s *Session) withExecutor(ctx context.Context) context.Context {
	return cdp.WithExecutor(ctx, s.exec)
}

// Navigate implements browser.Session. It returns once the document has
// finished loading.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.closed() {
		return browser.ErrSessionClosed
	}
	_, _, errText, err := cdppage.Navigate(url).Do(s.withExecutor(ctx))
	if err != nil {
		return err
	}
	if errText != "" {
		return errors.New(errText)
	}

	ctx, cancel := context.WithTimeout(ctx, navigationTimeout)
	defer cancel()
	ticker := time.NewTicker(loadPollInterval)
	defer ticker.Stop()
	for {
		state, err := s.eval(ctx, "document.readyState")
		if err != nil && !errors.Is(err, browser.ErrNavigating) {
			return err
		}
		if err == nil && state.String() == "complete" {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s to load: %w", url, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Find implements browser.Session.
func (s *Session) Find(ctx context.Context, by browser.By) (browser.Element, error) {
	if s.closed() {
		return nil, browser.ErrSessionClosed
	}
	res, err := s.evalElement(ctx, by, "return {value: true};")
	if err != nil {
		return nil, err
	}
	if res.Get("missing").Bool() {
		return nil, fmt.Errorf("%s: %w", by, browser.ErrNoSuchElement)
	}
	return &element{session: s, by: by}, nil
}

// Screenshot implements browser.Session.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	if s.closed() {
		return nil, browser.ErrSessionClosed
	}
	buf, err := cdppage.CaptureScreenshot().
		WithFormat(cdppage.CaptureScreenshotFormatPng).
		Do(s.withExecutor(ctx))
	if err != nil {
		return nil, fmt.Errorf("cannot capture screenshot: %w", err)
	}
	return buf, nil
}

// Close implements browser.Session. A browser started for the session is
// shut down with it; a remote browser only loses the page.
func (s *Session) Close() error {
	s.closeMu.Lock()
	if s.isClosed {
		s.closeMu.Unlock()
		return nil
	}
	s.isClosed = true
	s.closeMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if s.proc != nil {
		if err := cdpbrowser.Close().Do(cdp.WithExecutor(ctx, s.conn)); err != nil && !errors.Is(err, errConnectionClosed) {
			errs = append(errs, fmt.Errorf("closing browser: %w", err))
		}
	} else if err := cdppage.Close().Do(s.withExecutor(ctx)); err != nil {
		errs = append(errs, fmt.Errorf("closing page: %w", err))
	}
	if err := s.conn.close(); err != nil {
		s.logger.Debugf("Session:close", "closing connection: %v", err)
	}
	if s.proc != nil {
		s.proc.stop()
	}
	return errors.Join(errs...)
}

func (s *Session) eval(ctx context.Context, expr string) (gjson.Result, error) {
	res, exc, err := runtime.Evaluate(expr).
		WithReturnByValue(true).
		Do(s.withExecutor(ctx))
	if err != nil {
		if contextLost(err) {
			return gjson.Result{}, fmt.Errorf("%w: %w", browser.ErrNavigating, err)
		}
		return gjson.Result{}, err
	}
	if exc != nil {
		return gjson.Result{}, fmt.Errorf("evaluating script: %s", exc.Text)
	}
	if res == nil {
		return gjson.Result{}, nil
	}
	return gjson.ParseBytes(res.Value), nil
}

// contextLost reports whether Chrome rejected an evaluation because the
// execution context went away with the document it belonged to.
func contextLost(err error) bool {
	var cerr *cdproto.Error
	if !errors.As(err, &cerr) {
		return false
	}
	return strings.Contains(cerr.Message, "Execution context was destroyed") ||
		strings.Contains(cerr.Message, "Cannot find context with specified id")
}

// evalElement runs body with el bound to the element matching by. A missing
// element yields {"missing": true}.
func (s *Session) evalElement(ctx context.Context, by browser.By, body string) (gjson.Result, error) {
	sel, err := json.Marshal(by.Selector())
	if err != nil {
		return gjson.Result{}, err
	}
	return s.eval(ctx, fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) { return {missing: true}; }
	%s
})()`, sel, body))
}

// element re-queries its selector on every call, so it never holds a remote
// object that a reload could invalidate.
type element struct {
	session *Session
	by      browser.By
}

var _ browser.Element = &element{}

func (e *element) do(ctx context.Context, body string) (gjson.Result, error) {
	if e.session.closed() {
		return gjson.Result{}, browser.ErrSessionClosed
	}
	res, err := e.session.evalElement(ctx, e.by, body)
	if err != nil {
		return res, err
	}
	if res.Get("missing").Bool() {
		return res, fmt.Errorf("%s: %w", e.by, browser.ErrStaleElement)
	}
	return res, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	res, err := e.do(ctx, `return {value: (el.innerText !== undefined ? el.innerText : el.textContent) || ""};`)
	return res.Get("value").String(), err
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	res, err := e.do(ctx, `const s = window.getComputedStyle(el);
	const r = el.getBoundingClientRect();
	return {value: s.visibility !== "hidden" && s.display !== "none" && r.width > 0 && r.height > 0};`)
	return res.Get("value").Bool(), err
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	res, err := e.do(ctx, `return {value: !el.disabled};`)
	return res.Get("value").Bool(), err
}

func (e *element) IsSelected(ctx context.Context) (bool, error) {
	res, err := e.do(ctx, `return {value: !!(el.checked || el.selected)};`)
	return res.Get("value").Bool(), err
}

func (e *element) Click(ctx context.Context) error {
	res, err := e.do(ctx, `el.scrollIntoView({block: "center", inline: "center"});
	const r = el.getBoundingClientRect();
	return {x: r.left + r.width / 2, y: r.top + r.height / 2};`)
	if err != nil {
		return err
	}
	x, y := res.Get("x").Float(), res.Get("y").Float()
	for _, typ := range []input.MouseType{input.MousePressed, input.MouseReleased} {
		err := input.DispatchMouseEvent(typ, x, y).
			WithButton(input.Left).
			WithClickCount(1).
			Do(e.session.withExecutor(ctx))
		if err != nil {
			return fmt.Errorf("dispatching %s at (%.0f, %.0f): %w", typ, x, y, err)
		}
	}
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	_, err := e.do(ctx, `el.focus();
	if ("value" in el) {
		el.value = "";
		el.dispatchEvent(new Event("input", {bubbles: true}));
		el.dispatchEvent(new Event("change", {bubbles: true}));
	}
	return {value: true};`)
	return err
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if _, err := e.do(ctx, `el.focus(); return {value: true};`); err != nil {
		return err
	}
	return input.InsertText(text).Do(e.session.withExecutor(ctx))
}
