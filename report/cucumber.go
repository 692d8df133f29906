// Package report turns a finished suite run into files on disk: a cucumber
// JSON report, failure artifacts, and a note about where to find them.
package report

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/liuxd6825/webaccept/log"
	"github.com/liuxd6825/webaccept/scenario"
	"github.com/liuxd6825/webaccept/suite"
)

// DefaultPath is where the cucumber JSON report is written.
const DefaultPath = "target/cucumber-reports/cucumber.json"

const defaultFeature = "Acceptance"

type feature struct {
	URI      string    `json:"uri"`
	ID       string    `json:"id"`
	Keyword  string    `json:"keyword"`
	Name     string    `json:"name"`
	Line     int       `json:"line"`
	Elements []element `json:"elements"`
}

type element struct {
	ID      string `json:"id"`
	Keyword string `json:"keyword"`
	Name    string `json:"name"`
	Line    int    `json:"line"`
	Type    string `json:"type"`
	Tags    []tag  `json:"tags,omitempty"`
	Steps   []step `json:"steps"`
	After   []hook `json:"after,omitempty"`
}

type tag struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

type step struct {
	Keyword string `json:"keyword"`
	Name    string `json:"name"`
	Line    int    `json:"line"`
	Result  result `json:"result"`
}

type result struct {
	Status       string `json:"status"`
	Duration     int64  `json:"duration,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type hook struct {
	Match      match       `json:"match"`
	Result     result      `json:"result"`
	Embeddings []embedding `json:"embeddings,omitempty"`
}

type match struct {
	Location string `json:"location"`
}

type embedding struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
	Name     string `json:"name,omitempty"`
}

// CucumberJSON writes the summary in the cucumber JSON format understood by
// the usual report renderers.
type CucumberJSON struct {
	FS     afero.Fs
	Path   string
	Logger *log.Logger
}

var _ suite.Notifier = &CucumberJSON{}

// Notify implements suite.Notifier.
func (c *CucumberJSON) Notify(_ context.Context, s *suite.Summary) error {
	path := c.Path
	if path == "" {
		path = DefaultPath
	}
	data, err := json.MarshalIndent(build(s.Results()), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cucumber report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := c.FS.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := afero.WriteFile(c.FS, path, data, 0o644); err != nil {
		return fmt.Errorf("writing cucumber report: %w", err)
	}
	c.Logger.Debugf("Report:cucumber", "wrote %d bytes to %s", len(data), path)
	return nil
}

// build groups results by feature, keeping the order in which features and
// scenarios first appear.
func build(results []*scenario.Result) []feature {
	features := []feature{}
	index := map[string]int{}
	for _, r := range results {
		name := r.Feature
		if name == "" {
			name = defaultFeature
		}
		i, ok := index[name]
		if !ok {
			i = len(features)
			index[name] = i
			features = append(features, feature{
				URI:      r.URI,
				ID:       slug(name),
				Keyword:  "Feature",
				Name:     name,
				Line:     1,
				Elements: []element{},
			})
		}
		features[i].Elements = append(features[i].Elements, buildElement(features[i].ID, r))
	}
	return features
}

func buildElement(featureID string, r *scenario.Result) element {
	el := element{
		ID:      featureID + ";" + slug(r.Name),
		Keyword: "Scenario",
		Name:    r.Name,
		Type:    "scenario",
		Steps:   make([]step, 0, len(r.Steps)),
	}
	for _, t := range r.Tags {
		el.Tags = append(el.Tags, tag{Name: t})
	}
	for _, st := range r.Steps {
		res := result{Status: st.Status.String(), Duration: st.Duration.Nanoseconds()}
		if st.Err != nil {
			res.ErrorMessage = st.Err.Error()
		}
		el.Steps = append(el.Steps, step{Keyword: "* ", Name: st.Name, Result: res})
	}

	after := hook{Match: match{Location: "scenario.Finalize"}, Result: result{Status: "passed"}}
	if r.Err != nil && r.Executed() == 0 {
		// Nothing ran, so the failure has to surface through the hook.
		after.Result = result{Status: "failed", ErrorMessage: r.Err.Error()}
	}
	for _, a := range r.Attachments {
		after.Embeddings = append(after.Embeddings, embedding{
			MimeType: a.MediaType(),
			Data:     base64.StdEncoding.EncodeToString(a.Data()),
			Name:     a.Label(),
		})
	}
	el.After = []hook{after}
	return el
}

func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}
