// Package cdp is a browser backend speaking the Chrome DevTools Protocol
// over a websocket, either to a Chromium it starts or to a running one.
package cdp

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/log"
)

// Launcher opens a page target per session.
type Launcher struct {
	Logger *log.Logger
}

var _ browser.Launcher = &Launcher{}

// NewLauncher returns a Launcher logging to logger.
func NewLauncher(logger *log.Logger) *Launcher {
	return &Launcher{Logger: logger}
}

// Open implements browser.Launcher. When opts.RemoteURL is a ws:// or wss://
// DevTools endpoint the page is opened there, otherwise a new Chromium is
// started with flags derived from opts.
func (l *Launcher) Open(ctx context.Context, opts browser.Options) (_ browser.Session, rerr error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var proc *process
	wsURL := opts.RemoteURL
	if !strings.HasPrefix(wsURL, "ws://") && !strings.HasPrefix(wsURL, "wss://") {
		var err error
		if proc, err = newAllocator(opts.ExecutablePath, l.Logger).allocate(ctx, opts); err != nil {
			return nil, err
		}
		defer func() {
			if rerr != nil {
				proc.stop()
			}
		}()
		wsURL = proc.wsURL
	}

	conn, err := dial(ctx, wsURL, l.Logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", wsURL, err)
	}
	defer func() {
		if rerr != nil {
			_ = conn.close()
		}
	}()

	targetID, err := target.CreateTarget("about:blank").Do(cdp.WithExecutor(ctx, conn))
	if err != nil {
		return nil, fmt.Errorf("creating page target: %w", err)
	}
	sessionID, err := target.AttachToTarget(targetID).WithFlatten(true).Do(cdp.WithExecutor(ctx, conn))
	if err != nil {
		return nil, fmt.Errorf("attaching to page target: %w", err)
	}
	l.Logger.Debugf("Launcher:open", "attached to target %s as session %s", targetID, sessionID)

	return &Session{
		id:     targetID,
		conn:   conn,
		exec:   sessionExecutor{conn: conn, sessionID: sessionID},
		proc:   proc,
		logger: l.Logger,
	}, nil
}
