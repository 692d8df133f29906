// Package browsertest provides an in-memory browser.Session used to exercise
// page objects, scenario controllers and suite runs without a real browser.
package browsertest

import (
	"context"
	"sync"

	"github.com/liuxd6825/webaccept/browser"
)

// Element is a scriptable browser.Element. The zero value is not usable,
// create elements with NewElement.
type Element struct {
	mu sync.Mutex

	session   *Session
	text      string
	value     string
	displayed bool
	enabled   bool
	selected  bool
	checkbox  bool
	// hiddenPolls is the number of IsDisplayed calls answered with false
	// before the element turns visible.
	hiddenPolls int
	fault       error
	onClick     func(*Session)

	clicks    int
	polls     int
	mutations []string
}

var _ browser.Element = &Element{}

// NewElement returns a visible and enabled element showing text.
func NewElement(text string) *Element {
	return &Element{text: text, displayed: true, enabled: true}
}

// Hidden makes the element invisible until Show is called.
func (e *Element) Hidden() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.displayed = false
	return e
}

// Disabled makes the element visible but not clickable.
func (e *Element) Disabled() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = false
	return e
}

// Checkbox makes clicks toggle the selection state.
func (e *Element) Checkbox(selected bool) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkbox = true
	e.selected = selected
	return e
}

// ShowAfter keeps the element hidden for the first n visibility polls.
func (e *Element) ShowAfter(n int) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hiddenPolls = n
	return e
}

// Fail makes every call on the element return err.
func (e *Element) Fail(err error) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fault = err
	return e
}

// OnClick registers fn to run after every click.
func (e *Element) OnClick(fn func(*Session)) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onClick = fn
	return e
}

// Show makes the element visible.
func (e *Element) Show() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.displayed = true
	e.hiddenPolls = 0
}

// SetText changes the text content of the element.
func (e *Element) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = text
}

// Clicks returns how many times the element was clicked.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Value returns what was typed into the element.
func (e *Element) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// Selected returns the current selection state.
func (e *Element) Selected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Mutations returns the ordered list of state changing calls, e.g. "clear",
// "type:foo" and "click".
func (e *Element) Mutations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.mutations...)
}

func (e *Element) check() error {
	if e.session != nil && e.session.isClosed() {
		return browser.ErrSessionClosed
	}
	return e.fault
}

// Text implements browser.Element.
func (e *Element) Text(_ context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(); err != nil {
		return "", err
	}
	return e.text, nil
}

// IsDisplayed implements browser.Element.
func (e *Element) IsDisplayed(_ context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(); err != nil {
		return false, err
	}
	e.polls++
	if e.polls <= e.hiddenPolls {
		return false, nil
	}
	return e.displayed, nil
}

// IsEnabled implements browser.Element.
func (e *Element) IsEnabled(_ context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(); err != nil {
		return false, err
	}
	return e.enabled, nil
}

// IsSelected implements browser.Element.
func (e *Element) IsSelected(_ context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(); err != nil {
		return false, err
	}
	return e.selected, nil
}

// Click implements browser.Element.
func (e *Element) Click(_ context.Context) error {
	e.mu.Lock()
	if err := e.check(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.clicks++
	e.mutations = append(e.mutations, "click")
	if e.checkbox {
		e.selected = !e.selected
	}
	fn, s := e.onClick, e.session
	e.mu.Unlock()

	if fn != nil {
		fn(s)
	}
	return nil
}

// Clear implements browser.Element.
func (e *Element) Clear(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(); err != nil {
		return err
	}
	e.value = ""
	e.mutations = append(e.mutations, "clear")
	return nil
}

// SendKeys implements browser.Element.
func (e *Element) SendKeys(_ context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(); err != nil {
		return err
	}
	e.value += text
	e.mutations = append(e.mutations, "type:"+text)
	return nil
}
