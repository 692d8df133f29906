package cucumber

import (
	"bytes"
	"os"
	"sync"

	gherkin "github.com/cucumber/gherkin/go/v26"
	"github.com/cucumber/godog"
	messages "github.com/cucumber/messages/go/v21"
)

// featureNames resolves the Feature title behind a scenario URI. Bundled
// features are parsed from memory; any other URI is read from disk once.
type featureNames struct {
	mu      sync.Mutex
	names   map[string]string
	bundled map[string][]byte
}

func newFeatureNames(bundled []godog.Feature) *featureNames {
	f := &featureNames{
		names:   make(map[string]string),
		bundled: make(map[string][]byte, len(bundled)),
	}
	for _, feat := range bundled {
		f.bundled[feat.Name] = feat.Contents
	}
	return f
}

// lookup returns "" when the document cannot be read or parsed.
func (f *featureNames) lookup(uri string) string {
	if f == nil {
		return ""
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if name, ok := f.names[uri]; ok {
		return name
	}
	data, ok := f.bundled[uri]
	if !ok {
		data, _ = os.ReadFile(uri) //nolint:gosec
	}
	name := featureTitle(data)
	f.names[uri] = name
	return name
}

func featureTitle(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	doc, err := gherkin.ParseGherkinDocument(bytes.NewReader(data), (&messages.Incrementing{}).NewId)
	if err != nil || doc.Feature == nil {
		return ""
	}
	return doc.Feature.Name
}
