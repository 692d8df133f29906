// Package exitcodes lists the exit codes of the webaccept binary.
package exitcodes

// ExitCode is a process exit code.
type ExitCode uint8

const (
	// ScenariosFailed: the run finished and at least one scenario failed.
	ScenariosFailed ExitCode = 99
	// ProvisioningFailed: no browser backend could be set up for the run.
	ProvisioningFailed ExitCode = 100
	// ReportFailed: the report, artifacts or metrics could not be written.
	ReportFailed  ExitCode = 101
	InvalidConfig ExitCode = 104
	ExternalAbort ExitCode = 105
	GoPanic       ExitCode = 106
)
