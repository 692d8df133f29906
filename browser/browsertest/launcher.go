package browsertest

import (
	"context"
	"sync"

	"github.com/liuxd6825/webaccept/browser"
)

// Launcher is a browser.Launcher handing out in-memory sessions.
type Launcher struct {
	// NewSession builds the session returned by the next Open call. It
	// defaults to NewLoginSession with DefaultErrorText.
	NewSession func() *Session
	// Err, when set, makes every Open call fail.
	Err error

	mu       sync.Mutex
	sessions []*Session
	options  []browser.Options
}

var _ browser.Launcher = &Launcher{}

// Open implements browser.Launcher.
func (l *Launcher) Open(ctx context.Context, opts browser.Options) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.options = append(l.options, opts)
	if l.Err != nil {
		return nil, l.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	newSession := l.NewSession
	if newSession == nil {
		newSession = func() *Session { return NewLoginSession(DefaultErrorText) }
	}
	s := newSession()
	l.sessions = append(l.sessions, s)
	return s, nil
}

// Sessions returns every session opened so far.
func (l *Launcher) Sessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.sessions...)
}

// Options returns the options of every Open call, including failed ones.
func (l *Launcher) Options() []browser.Options {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]browser.Options(nil), l.options...)
}
