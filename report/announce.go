package report

import (
	"context"

	"github.com/spf13/afero"

	"github.com/liuxd6825/webaccept/log"
	"github.com/liuxd6825/webaccept/suite"
)

// Announcer tells where the report of the run can be found. A missing
// report is only a warning.
type Announcer struct {
	FS     afero.Fs
	Path   string
	Logger *log.Logger
}

var _ suite.Notifier = &Announcer{}

// Notify implements suite.Notifier.
func (a *Announcer) Notify(_ context.Context, s *suite.Summary) error {
	path := a.Path
	if path == "" {
		path = DefaultPath
	}
	ok, err := afero.Exists(a.FS, path)
	if err != nil || !ok {
		a.Logger.Warnf("Report:announce", "report file not found at %s", path)
		return nil
	}
	a.Logger.Infof("Report:announce", "report available at %s (%d passed, %d failed)",
		path, s.Passed(), s.Failed())
	return nil
}
