package suite

import (
	"sync"
	"time"

	"github.com/liuxd6825/webaccept/scenario"
)

// Summary aggregates scenario results. It is safe for concurrent use.
type Summary struct {
	mu       sync.Mutex
	results  []*scenario.Result
	started  time.Time
	finished time.Time
}

// NewSummary returns an empty Summary.
func NewSummary() *Summary {
	return &Summary{started: time.Now()}
}

// Add records res.
func (s *Summary) Add(res *scenario.Result) {
	if res == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
}

// Results returns the recorded results in completion order.
func (s *Summary) Results() []*scenario.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*scenario.Result(nil), s.results...)
}

// Total returns the number of recorded scenarios.
func (s *Summary) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// Passed returns the number of passed scenarios.
func (s *Summary) Passed() int {
	return s.count(scenario.StatusPassed)
}

// Failed returns the number of failed scenarios.
func (s *Summary) Failed() int {
	return s.count(scenario.StatusFailed)
}

func (s *Summary) count(status scenario.Status) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// OK reports whether every recorded scenario passed.
func (s *Summary) OK() bool {
	return s.Failed() == 0
}

// Finish stamps the end of the run.
func (s *Summary) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = time.Now()
}

// Duration returns the wall time of the run, up to now if it is unfinished.
func (s *Summary) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished.IsZero() {
		return time.Since(s.started)
	}
	return s.finished.Sub(s.started)
}
