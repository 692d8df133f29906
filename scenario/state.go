package scenario

import "fmt"

// State is a position in the scenario lifecycle:
//
//	Idle -> Provisioning -> Ready -> Executing -> (Passed | Failed) -> Finalizing -> Closed
//
// Provisioning may go straight to Failed.
type State int

// Lifecycle states.
const (
	Idle State = iota
	Provisioning
	Ready
	Executing
	Passed
	Failed
	Finalizing
	Closed
)

var stateNames = map[State]string{
	Idle:         "idle",
	Provisioning: "provisioning",
	Ready:        "ready",
	Executing:    "executing",
	Passed:       "passed",
	Failed:       "failed",
	Finalizing:   "finalizing",
	Closed:       "closed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var transitions = map[State][]State{
	Idle:         {Provisioning, Finalizing},
	Provisioning: {Ready, Failed},
	Ready:        {Executing, Passed, Failed},
	Executing:    {Passed, Failed},
	Passed:       {Finalizing},
	Failed:       {Finalizing},
	Finalizing:   {Closed},
}

func (s State) canMoveTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Status is the outcome of a scenario.
type Status int

// Scenario outcomes.
const (
	StatusPending Status = iota
	StatusPassed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// StepStatus is the outcome of one step.
type StepStatus int

// Step outcomes.
const (
	StepPassed StepStatus = iota
	StepFailed
	StepSkipped
)

func (s StepStatus) String() string {
	switch s {
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	default:
		return "skipped"
	}
}
