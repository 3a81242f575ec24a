package run

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r := New()

	assert.NotEmpty(t, r.ID)
	assert.True(t, strings.HasPrefix(r.ID, "run-"))
	assert.Equal(t, StatusIdle, r.Status)
	assert.Empty(t, r.Assets)
	assert.Equal(t, 0, r.Progress)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestGenerateID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateID()
		assert.False(t, seen[id], "duplicate ID %s", id)
		seen[id] = true
	}
}

func TestTransitionTo_HappyPath(t *testing.T) {
	r := New()

	for _, status := range []Status{StatusSegmenting, StatusProcessing, StatusAssembling, StatusCompleted} {
		require.NoError(t, r.TransitionTo(status))
		assert.Equal(t, status, r.GetStatus())
	}
	assert.False(t, r.StartedAt.IsZero())
	assert.False(t, r.CompletedAt.IsZero())
}

func TestTransitionTo_AnyActiveStateCanFail(t *testing.T) {
	tests := []struct {
		name  string
		setup []Status
	}{
		{"from idle", nil},
		{"from segmenting", []Status{StatusSegmenting}},
		{"from processing", []Status{StatusSegmenting, StatusProcessing}},
		{"from assembling", []Status{StatusSegmenting, StatusProcessing, StatusAssembling}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			for _, s := range tt.setup {
				require.NoError(t, r.TransitionTo(s))
			}
			assert.NoError(t, r.TransitionTo(StatusFailed))
		})
	}
}

func TestTransitionTo_Invalid(t *testing.T) {
	r := New()

	// Cannot skip stages.
	assert.ErrorIs(t, r.TransitionTo(StatusAssembling), ErrInvalidTransition)
	assert.ErrorIs(t, r.TransitionTo(StatusCompleted), ErrInvalidTransition)

	// Terminal states are final.
	require.NoError(t, r.TransitionTo(StatusFailed))
	assert.ErrorIs(t, r.TransitionTo(StatusSegmenting), ErrInvalidTransition)
	assert.ErrorIs(t, r.TransitionTo(StatusCompleted), ErrInvalidTransition)
}

func TestFail(t *testing.T) {
	r := New()
	require.NoError(t, r.TransitionTo(StatusSegmenting))

	require.NoError(t, r.Fail("tts backend unreachable"))
	assert.Equal(t, StatusFailed, r.GetStatus())
	assert.Equal(t, "tts backend unreachable", r.Error)
	assert.True(t, r.IsTerminal())
}

func TestUpdateProgress_Monotonic(t *testing.T) {
	r := New()

	r.UpdateProgress(40)
	assert.Equal(t, 40, r.GetProgress())

	// Lower values are ignored.
	r.UpdateProgress(10)
	assert.Equal(t, 40, r.GetProgress())

	// Values above 100 are clamped.
	r.UpdateProgress(150)
	assert.Equal(t, 100, r.GetProgress())
}

func TestAppendAsset(t *testing.T) {
	r := New()
	r.AppendAsset(SceneAsset{Index: 0, Text: "opening", AudioDuration: 2.5})
	r.AppendAsset(SceneAsset{Index: 1, Text: "closing", AudioFallback: true, AudioFallbackReason: "engine_error"})

	require.Len(t, r.Assets, 2)
	assert.Equal(t, "opening", r.Assets[0].Text)
	assert.True(t, r.Assets[1].AudioFallback)
}

func TestClone_Independence(t *testing.T) {
	r := New()
	r.AppendAsset(SceneAsset{Index: 0, Text: "scene"})
	r.UpdateProgress(50)

	clone := r.Clone()
	clone.Assets[0].Text = "mutated"
	clone.Progress = 99

	assert.Equal(t, "scene", r.Assets[0].Text)
	assert.Equal(t, 50, r.GetProgress())
}
