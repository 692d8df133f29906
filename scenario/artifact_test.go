package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/browser/browsertest"
)

func TestArtifactIsImmutable(t *testing.T) {
	t.Parallel()

	src := []byte{1, 2, 3}
	a := NewArtifact("x", MediaTypePNG, src)
	src[0] = 9

	data := a.Data()
	assert.Equal(t, []byte{1, 2, 3}, data)
	data[1] = 9
	assert.Equal(t, []byte{1, 2, 3}, a.Data())
	assert.Equal(t, 3, a.Size())
	assert.False(t, a.CapturedAt().IsZero())
}

func TestCaptureArtifact(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	a, err := CaptureArtifact(ctx, browsertest.NewSession(), FailureScreenshot)
	require.NoError(t, err)
	assert.Equal(t, FailureScreenshot, a.Label())
	assert.Equal(t, MediaTypePNG, a.MediaType())

	_, err = CaptureArtifact(ctx, nil, FailureScreenshot)
	assert.ErrorIs(t, err, ErrNoSession)

	fault := errors.New("target closed")
	_, err = CaptureArtifact(ctx, browsertest.NewSession().FailScreenshot(fault), FailureScreenshot)
	var aerr *ArtifactError
	require.ErrorAs(t, err, &aerr)
	assert.ErrorIs(t, err, fault)
	assert.Equal(t, "capture Failure Screenshot: target closed", err.Error())

	s := browsertest.NewSession()
	require.NoError(t, s.Close())
	_, err = CaptureArtifact(ctx, s, ExplicitScreenshot)
	assert.ErrorIs(t, err, browser.ErrSessionClosed)
}

func TestStateTransitions(t *testing.T) {
	t.Parallel()

	assert.True(t, Idle.canMoveTo(Provisioning))
	assert.True(t, Provisioning.canMoveTo(Failed))
	assert.False(t, Provisioning.canMoveTo(Executing))
	assert.False(t, Closed.canMoveTo(Provisioning))
	assert.Equal(t, "finalizing", Finalizing.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestAssertions(t *testing.T) {
	t.Parallel()

	assert.NoError(t, AssertTrue(true, "unused"))
	assert.EqualError(t, AssertTrue(false, "Username field is not displayed"), "Username field is not displayed")
	assert.NoError(t, AssertEqual("a", "a", "unused"))
	assert.EqualError(t, AssertEqual("a", "b", "Error message mismatch"),
		`Error message mismatch: expected "a" but found "b"`)
}
