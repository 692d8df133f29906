// Package testutils holds helpers shared by the package tests.
package testutils

import (
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// SimpleLogrusHook records every entry fired at one of its levels so tests
// can assert on what was logged.
type SimpleLogrusHook struct {
	levels []logrus.Level

	mu      sync.Mutex
	entries []logrus.Entry
}

var _ logrus.Hook = &SimpleLogrusHook{}

// NewLogHook returns a hook firing for levels, or for every level when none
// are given.
func NewLogHook(levels ...logrus.Level) *SimpleLogrusHook {
	if len(levels) == 0 {
		levels = logrus.AllLevels
	}
	return &SimpleLogrusHook{levels: levels}
}

// NewLogrusLogger returns a debug level logger that writes nowhere and
// records its entries in the returned hook.
func NewLogrusLogger(tb testing.TB) (*logrus.Logger, *SimpleLogrusHook) {
	tb.Helper()

	hook := NewLogHook()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(hook)
	return logger, hook
}

// Levels implements logrus.Hook.
func (h *SimpleLogrusHook) Levels() []logrus.Level {
	return h.levels
}

// Fire implements logrus.Hook.
func (h *SimpleLogrusHook) Fire(e *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, *e)
	return nil
}

// Drain returns the recorded entries and forgets them.
func (h *SimpleLogrusHook) Drain() []logrus.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.entries
	h.entries = nil
	return out
}

// Lines drains the hook and returns the messages only.
func (h *SimpleLogrusHook) Lines() []string {
	entries := h.Drain()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Message)
	}
	return lines
}

// LastEntry returns the most recent entry without draining, or nil.
func (h *SimpleLogrusHook) LastEntry() *logrus.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return nil
	}
	e := h.entries[len(h.entries)-1]
	return &e
}

// LogContains reports whether an entry at level has a message containing
// contents.
func LogContains(entries []logrus.Entry, level logrus.Level, contents string) bool {
	for _, e := range entries {
		if e.Level == level && strings.Contains(e.Message, contents) {
			return true
		}
	}
	return false
}

// InCategory returns the entries logged under category, e.g. "Action:click"
// or "Controller:finalize".
func InCategory(entries []logrus.Entry, category string) []logrus.Entry {
	var out []logrus.Entry
	for _, e := range entries {
		if e.Data["category"] == category {
			out = append(out, e)
		}
	}
	return out
}
