package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/liuxd6825/webaccept/browser"
)

// MediaTypePNG is the media type of visual captures.
const MediaTypePNG = "image/png"

// Capture labels.
const (
	FailureScreenshot  = "Failure Screenshot"
	ExplicitScreenshot = "Explicit Screenshot"
)

// Artifact is an immutable diagnostic attachment.
type Artifact struct {
	label      string
	mediaType  string
	data       []byte
	capturedAt time.Time
}

// NewArtifact copies data into a new Artifact.
func NewArtifact(label, mediaType string, data []byte) *Artifact {
	return &Artifact{
		label:      label,
		mediaType:  mediaType,
		data:       append([]byte(nil), data...),
		capturedAt: time.Now(),
	}
}

// Label returns the human readable name of the artifact.
func (a *Artifact) Label() string { return a.label }

// MediaType returns the media type of the artifact content.
func (a *Artifact) MediaType() string { return a.mediaType }

// CapturedAt returns when the artifact was created.
func (a *Artifact) CapturedAt() time.Time { return a.capturedAt }

// Size returns the content length in bytes.
func (a *Artifact) Size() int { return len(a.data) }

// Data returns a copy of the artifact content.
func (a *Artifact) Data() []byte {
	return append([]byte(nil), a.data...)
}

// CaptureArtifact takes a visual capture of s. Capture is attempted once.
func CaptureArtifact(ctx context.Context, s browser.Session, label string) (*Artifact, error) {
	if s == nil {
		return nil, &ArtifactError{Op: "capture " + label, Err: ErrNoSession}
	}
	data, err := s.Screenshot(ctx)
	if err != nil {
		return nil, &ArtifactError{Op: "capture " + label, Err: err}
	}
	if len(data) == 0 {
		return nil, &ArtifactError{
			Op:  "capture " + label,
			Err: fmt.Errorf("empty capture: %w", browser.ErrCaptureUnsupported),
		}
	}
	return NewArtifact(label, MediaTypePNG, data), nil
}
