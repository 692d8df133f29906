package browsertest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/liuxd6825/webaccept/browser"
)

// PNG is the capture returned by sessions that were not given other bytes.
var PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")

var sessionSeq atomic.Int64

// Session is an in-memory browser.Session.
type Session struct {
	mu sync.Mutex

	id       string
	elements map[browser.By]*Element
	absent   map[browser.By]int
	lookups  map[browser.By]int

	navigations   []string
	navigateErr   error
	findErr       error
	screenshot    []byte
	screenshotErr error
	screenshots   int
	closeErr      error
	closeCalls    int
	closed        bool
}

var _ browser.Session = &Session{}

// NewSession returns an empty session that captures PNG.
func NewSession() *Session {
	return &Session{
		id:         fmt.Sprintf("fake-%d", sessionSeq.Add(1)),
		elements:   make(map[browser.By]*Element),
		absent:     make(map[browser.By]int),
		lookups:    make(map[browser.By]int),
		screenshot: PNG,
	}
}

// Add places el on the page under by.
func (s *Session) Add(by browser.By, el *Element) *Session {
	el.mu.Lock()
	el.session = s
	el.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements[by] = el
	return s
}

// Element returns the element registered under by, or nil.
func (s *Session) Element(by browser.By) *Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elements[by]
}

// AppearAfter makes the first n lookups of by fail with ErrNoSuchElement.
func (s *Session) AppearAfter(by browser.By, n int) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.absent[by] = n
	return s
}

// FailNavigate makes Navigate return err.
func (s *Session) FailNavigate(err error) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigateErr = err
	return s
}

// FailFind makes every lookup return err.
func (s *Session) FailFind(err error) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findErr = err
	return s
}

// FailScreenshot makes Screenshot return err.
func (s *Session) FailScreenshot(err error) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenshotErr = err
	return s
}

// FailClose makes Close return err. The session is still closed.
func (s *Session) FailClose(err error) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeErr = err
	return s
}

// Navigations returns the visited URLs in order.
func (s *Session) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

// Lookups returns how many times by was looked up.
func (s *Session) Lookups(by browser.By) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups[by]
}

// Screenshots returns how many captures were attempted.
func (s *Session) Screenshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screenshots
}

// CloseCalls returns how many times Close was called.
func (s *Session) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ID implements browser.Session.
func (s *Session) ID() string {
	return s.id
}

// Navigate implements browser.Session.
func (s *Session) Navigate(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ErrSessionClosed
	}
	if s.navigateErr != nil {
		return s.navigateErr
	}
	s.navigations = append(s.navigations, url)
	return nil
}

// Find implements browser.Session.
func (s *Session) Find(_ context.Context, by browser.By) (browser.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, browser.ErrSessionClosed
	}
	s.lookups[by]++
	if s.findErr != nil {
		return nil, s.findErr
	}
	el, ok := s.elements[by]
	if !ok || s.lookups[by] <= s.absent[by] {
		return nil, fmt.Errorf("%s: %w", by, browser.ErrNoSuchElement)
	}
	return el, nil
}

// Screenshot implements browser.Session.
func (s *Session) Screenshot(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenshots++
	if s.closed {
		return nil, browser.ErrSessionClosed
	}
	if s.screenshotErr != nil {
		return nil, s.screenshotErr
	}
	return append([]byte(nil), s.screenshot...), nil
}

// Close implements browser.Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	s.closed = true
	return s.closeErr
}
