package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adawatia/deoAI/internal/assemble"
	"github.com/adawatia/deoAI/internal/storage"
	"github.com/adawatia/deoAI/internal/tts"
	"github.com/adawatia/deoAI/internal/visual"
)

type fakeAudio struct {
	calls    []string
	fallback bool
}

func (f *fakeAudio) Synthesize(_ context.Context, text string, index int) tts.Result {
	f.calls = append(f.calls, text)
	if f.fallback {
		return tts.Result{
			Path:     fmt.Sprintf("/tmp/scene_%d_error.wav", index),
			Duration: 3.0,
			Fallback: true,
			Reason:   tts.ReasonEngineError,
		}
	}
	return tts.Result{
		Path:     fmt.Sprintf("/tmp/scene_%d.wav", index),
		Duration: 2.5,
	}
}

type fakeImage struct {
	calls     []string
	durations []float64
	fallback  bool
}

func (f *fakeImage) Synthesize(_ context.Context, text string, index int, audioDuration float64) visual.Result {
	f.calls = append(f.calls, text)
	f.durations = append(f.durations, audioDuration)
	if f.fallback {
		return visual.Result{
			Path:     fmt.Sprintf("/tmp/scene_%d_fallback.png", index),
			Fallback: true,
			Reason:   visual.ReasonEngineError,
		}
	}
	return visual.Result{Path: fmt.Sprintf("/tmp/scene_%d.jpg", index)}
}

type fakeAssembler struct {
	scenes    []assemble.Scene
	musicPath string
	outPath   string
	err       error
}

func (f *fakeAssembler) Assemble(_ context.Context, scenes []assemble.Scene, musicPath, outPath string, _ assemble.Options) error {
	f.scenes = scenes
	f.musicPath = musicPath
	f.outPath = outPath
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, []byte("video"), 0600)
}

func segmentByLines(raw string) []string {
	var scenes []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			scenes = append(scenes, line)
		}
	}
	return scenes
}

type serviceFixture struct {
	svc       *PipelineService
	audio     *fakeAudio
	image     *fakeImage
	assembler *fakeAssembler
	repo      *MemoryRepository
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	f := &serviceFixture{
		audio:     &fakeAudio{},
		image:     &fakeImage{},
		assembler: &fakeAssembler{},
		repo:      NewMemoryRepository(),
	}
	f.svc = NewPipelineService(
		segmentByLines,
		f.audio,
		f.image,
		f.assembler,
		store,
		f.repo,
		assemble.Options{Width: 1920, Height: 1080, FPS: 24, Preset: "fast", CRF: 23, MusicGain: 0.2},
		slog.Default(),
	)
	return f
}

func TestGenerate_HappyPath(t *testing.T) {
	f := newServiceFixture(t)

	r, err := f.svc.Generate(context.Background(), StartInput{
		Script: "The sun rises.\nThe city wakes.\nNight falls again.",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, 100, r.Progress)
	assert.Equal(t, 3, r.SceneCount)
	assert.Empty(t, r.Error)
	assert.NotEmpty(t, r.ArtifactPath)
	assert.Empty(t, r.ArtifactURL)

	// One asset per scene, in script order.
	require.Len(t, r.Assets, 3)
	for i, asset := range r.Assets {
		assert.Equal(t, i, asset.Index)
		assert.False(t, asset.AudioFallback)
		assert.False(t, asset.ImageFallback)
	}
	assert.Equal(t, []string{"The sun rises.", "The city wakes.", "Night falls again."}, f.audio.calls)

	// Image synthesis receives the paired audio duration.
	assert.Equal(t, []float64{2.5, 2.5, 2.5}, f.image.durations)

	// The assembler saw the synthesized assets.
	require.Len(t, f.assembler.scenes, 3)
	assert.Equal(t, "/tmp/scene_0.wav", f.assembler.scenes[0].AudioPath)
}

func TestGenerate_EmptyScript(t *testing.T) {
	f := newServiceFixture(t)

	r, err := f.svc.Generate(context.Background(), StartInput{Script: "   \n\n  "})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, r.Status)
	assert.Contains(t, r.Error, ErrEmptyScript.Error())
	assert.Empty(t, f.audio.calls, "no synthesis should happen for an empty script")
	assert.Empty(t, f.image.calls)
}

func TestGenerate_FallbacksDoNotFailRun(t *testing.T) {
	f := newServiceFixture(t)
	f.audio.fallback = true
	f.image.fallback = true

	r, err := f.svc.Generate(context.Background(), StartInput{Script: "One scene."})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, r.Status)
	require.Len(t, r.Assets, 1)
	assert.True(t, r.Assets[0].AudioFallback)
	assert.Equal(t, string(tts.ReasonEngineError), r.Assets[0].AudioFallbackReason)
	assert.True(t, r.Assets[0].ImageFallback)
}

func TestGenerate_AssemblerFailureFailsRun(t *testing.T) {
	f := newServiceFixture(t)
	f.assembler.err = errors.New("concat demuxer rejected input")

	r, err := f.svc.Generate(context.Background(), StartInput{Script: "One scene."})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, r.Status)
	assert.Contains(t, r.Error, "assemble video")
	assert.Empty(t, r.ArtifactPath)
}

func TestGenerate_MusicPathForwarded(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Generate(context.Background(), StartInput{
		Script:    "One scene.",
		MusicPath: "/tmp/music.mp3",
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/music.mp3", f.assembler.musicPath)
}

func TestGenerate_PushToS3NotConfigured(t *testing.T) {
	f := newServiceFixture(t)

	// LocalStorage has no S3; the upload failure must be absorbed.
	r, err := f.svc.Generate(context.Background(), StartInput{
		Script:   "One scene.",
		PushToS3: true,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.NotEmpty(t, r.ArtifactPath)
	assert.Empty(t, r.ArtifactURL)
}

func TestExecute_Cancellation(t *testing.T) {
	f := newServiceFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := f.svc.StartRun(context.Background(), StartInput{Script: "A.\nB."})
	require.NoError(t, err)

	f.svc.Execute(ctx, r, "A.\nB.")

	stored, err := f.repo.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "cancelled")
}

func TestGenerate_ProgressEventsMonotonic(t *testing.T) {
	f := newServiceFixture(t)
	notifier := NewChannelNotifier(64)
	f.svc.SetNotifier(notifier)

	_, err := f.svc.Generate(context.Background(), StartInput{Script: "A.\nB.\nC."})
	require.NoError(t, err)
	notifier.Close()

	last := -1
	sawCompleted := false
	for e := range notifier.Events() {
		switch e.Kind {
		case EventProgress:
			assert.GreaterOrEqual(t, e.Percent, last, "progress must never decrease")
			last = e.Percent
		case EventCompleted:
			sawCompleted = true
			assert.NotEmpty(t, e.ArtifactPath)
		}
	}
	assert.Equal(t, 100, last)
	assert.True(t, sawCompleted)
}
