package scenario

import (
	"time"
)

// StepResult records the outcome of one step.
type StepResult struct {
	Name     string
	Status   StepStatus
	Err      error
	Duration time.Duration
}

// Result is the record of one scenario run, handed to result sinks once the
// scenario is closed.
type Result struct {
	ID          string
	Name        string
	Feature     string
	URI         string
	Tags        []string
	Status      Status
	Err         error
	Steps       []StepResult
	Attachments []*Artifact
	StartedAt   time.Time
	Duration    time.Duration
}

// Executed returns how many steps ran, whether they passed or failed.
func (r *Result) Executed() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status != StepSkipped {
			n++
		}
	}
	return n
}

// Passed reports whether the scenario passed.
func (r *Result) Passed() bool {
	return r.Status == StatusPassed
}

func (r *Result) clone() *Result {
	c := *r
	c.Tags = append([]string(nil), r.Tags...)
	c.Steps = append([]StepResult(nil), r.Steps...)
	c.Attachments = append([]*Artifact(nil), r.Attachments...)
	return &c
}
