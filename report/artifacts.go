package report

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/liuxd6825/webaccept/log"
	"github.com/liuxd6825/webaccept/scenario"
	"github.com/liuxd6825/webaccept/suite"
)

// ArtifactDir writes the attachments of failed scenarios into Dir so that CI
// can collect them.
type ArtifactDir struct {
	FS     afero.Fs
	Dir    string
	Logger *log.Logger
}

var _ suite.Notifier = &ArtifactDir{}

// Notify implements suite.Notifier.
func (a *ArtifactDir) Notify(_ context.Context, s *suite.Summary) error {
	if a.Dir == "" {
		return nil
	}
	if err := a.FS.MkdirAll(a.Dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	written := 0
	for _, r := range s.Results() {
		if r.Status != scenario.StatusFailed {
			continue
		}
		for i, art := range r.Attachments {
			path := filepath.Join(a.Dir, artifactName(r, i, art))
			if err := afero.WriteFile(a.FS, path, art.Data(), 0o644); err != nil {
				return fmt.Errorf("writing artifact %s: %w", path, err)
			}
			written++
		}
	}
	a.Logger.Debugf("Report:artifacts", "wrote %d artifacts to %s", written, a.Dir)
	return nil
}

func artifactName(r *scenario.Result, i int, art *scenario.Artifact) string {
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	ext := ".bin"
	if art.MediaType() == scenario.MediaTypePNG {
		ext = ".png"
	}
	return fmt.Sprintf("%s-%s-%d%s", slug(r.Name), id, i, ext)
}
