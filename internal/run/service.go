package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adawatia/deoAI/internal/assemble"
	"github.com/adawatia/deoAI/internal/storage"
	"github.com/adawatia/deoAI/internal/tts"
	"github.com/adawatia/deoAI/internal/visual"
)

// ErrEmptyScript is returned when a run is started with a script that
// segments into zero scenes.
var ErrEmptyScript = errors.New("script produced no scenes")

// Progress weights for the pipeline stages. Per-scene work is spread
// linearly across the processing band.
const (
	progressSegmented  = 10
	progressProcessing = 85
	progressAssembled  = 95
	progressCompleted  = 100
)

// SegmentFunc splits a raw script into ordered scene texts.
type SegmentFunc func(raw string) []string

// AudioSynthesizer produces narration audio for one scene.
type AudioSynthesizer interface {
	Synthesize(ctx context.Context, text string, index int) tts.Result
}

// ImageSynthesizer produces a visual for one scene.
type ImageSynthesizer interface {
	Synthesize(ctx context.Context, text string, index int, audioDuration float64) visual.Result
}

// Assembler builds the final video from scene assets.
type Assembler interface {
	Assemble(ctx context.Context, scenes []assemble.Scene, musicPath, outPath string, opts assemble.Options) error
}

// StartInput carries the parameters for a new run.
type StartInput struct {
	// Script is the raw narration script.
	Script string
	// MusicPath is an optional background music file.
	MusicPath string
	// PushToS3 requests upload of the final video to S3.
	PushToS3 bool
}

// PipelineService orchestrates the script-to-video pipeline: segmentation,
// per-scene audio and image synthesis, and final assembly. Scene synthesis
// never fails a run; only segmentation and assembly can.
type PipelineService struct {
	segment      SegmentFunc
	audio        AudioSynthesizer
	image        ImageSynthesizer
	assembler    Assembler
	store        storage.Storage
	repo         Repository
	assembleOpts assemble.Options
	logger       *slog.Logger
	notifier     Notifier

	// runMu serializes pipeline execution. ffmpeg and the synthesis
	// backends are heavyweight; one run at a time keeps resource use
	// predictable.
	runMu sync.Mutex
}

// NewPipelineService wires the pipeline stages together.
func NewPipelineService(
	segment SegmentFunc,
	audio AudioSynthesizer,
	image ImageSynthesizer,
	assembler Assembler,
	store storage.Storage,
	repo Repository,
	assembleOpts assemble.Options,
	logger *slog.Logger,
) *PipelineService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineService{
		segment:      segment,
		audio:        audio,
		image:        image,
		assembler:    assembler,
		store:        store,
		repo:         repo,
		assembleOpts: assembleOpts,
		logger:       logger,
		notifier:     NopNotifier{},
	}
}

// SetNotifier installs a notifier for pipeline events. Pass nil to silence
// notifications.
func (s *PipelineService) SetNotifier(n Notifier) {
	if n == nil {
		n = NopNotifier{}
	}
	s.notifier = n
}

// StartRun creates and persists a new run in the IDLE state.
func (s *PipelineService) StartRun(ctx context.Context, input StartInput) (*Run, error) {
	r := New()
	r.MusicPath = input.MusicPath
	r.PushToS3 = input.PushToS3

	s.logger.Info("creating run",
		slog.String("run_id", r.ID),
		slog.Int("script_bytes", len(input.Script)),
		slog.Bool("music", input.MusicPath != ""),
		slog.Bool("push_to_s3", input.PushToS3),
	)

	if err := s.repo.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	return r, nil
}

// GetRun retrieves a run by ID.
func (s *PipelineService) GetRun(ctx context.Context, id string) (*Run, error) {
	return s.repo.FindByID(ctx, id)
}

// ListRuns returns all known runs, newest first.
func (s *PipelineService) ListRuns(ctx context.Context) ([]*Run, error) {
	return s.repo.List(ctx)
}

// Generate runs the whole pipeline synchronously: create the run, execute
// it, and return the final state.
func (s *PipelineService) Generate(ctx context.Context, input StartInput) (*Run, error) {
	r, err := s.StartRun(ctx, input)
	if err != nil {
		return nil, err
	}
	s.Execute(ctx, r, input.Script)
	return s.repo.FindByID(ctx, r.ID)
}

// Execute drives a previously created run through the pipeline. It never
// returns an error: failures are recorded on the run itself and reported
// through the notifier. Cancellation is honored at scene boundaries.
func (s *PipelineService) Execute(ctx context.Context, r *Run, script string) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if err := s.execute(ctx, r, script); err != nil {
		s.logger.Error("run failed",
			slog.String("run_id", r.ID),
			slog.String("error", err.Error()),
		)
		if ferr := r.Fail(err.Error()); ferr != nil {
			s.logger.Error("could not mark run as failed",
				slog.String("run_id", r.ID),
				slog.String("error", ferr.Error()),
			)
		}
		s.persist(r)
		s.notifier.Notify(Event{Kind: EventError, RunID: r.ID, Message: err.Error()})
	}

	if err := s.store.CleanupScratch(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("scratch cleanup failed",
			slog.String("run_id", r.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PipelineService) execute(ctx context.Context, r *Run, script string) error {
	// Segmentation.
	if err := s.transition(r, StatusSegmenting); err != nil {
		return err
	}

	scenes := s.segment(script)
	if len(scenes) == 0 {
		return ErrEmptyScript
	}
	r.SetSceneCount(len(scenes))
	s.progress(r, progressSegmented)
	s.persist(r)

	s.logger.Info("script segmented",
		slog.String("run_id", r.ID),
		slog.Int("scenes", len(scenes)),
	)
	s.notifier.Notify(Event{
		Kind:    EventStatus,
		RunID:   r.ID,
		Message: fmt.Sprintf("script segmented into %d scenes", len(scenes)),
	})

	// Per-scene synthesis.
	if err := s.transition(r, StatusProcessing); err != nil {
		return err
	}

	assembleScenes := make([]assemble.Scene, 0, len(scenes))
	for i, text := range scenes {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled at scene %d: %w", i, err)
		}

		asset := s.processScene(ctx, r, text, i)
		r.AppendAsset(asset)

		assembleScenes = append(assembleScenes, assemble.Scene{
			Index:         asset.Index,
			ImagePath:     asset.ImagePath,
			AudioPath:     asset.AudioPath,
			AudioDuration: asset.AudioDuration,
		})

		// Spread the processing band linearly across scenes.
		pct := progressSegmented + (i+1)*(progressProcessing-progressSegmented)/len(scenes)
		s.progress(r, pct)
		s.persist(r)
	}

	// Assembly.
	if err := s.transition(r, StatusAssembling); err != nil {
		return err
	}
	s.notifier.Notify(Event{Kind: EventStatus, RunID: r.ID, Message: "assembling final video"})

	outPath := s.store.NewVideoPath()
	if err := s.assembler.Assemble(ctx, assembleScenes, r.MusicPath, outPath, s.assembleOpts); err != nil {
		return fmt.Errorf("assemble video: %w", err)
	}
	s.progress(r, progressAssembled)

	artifactURL := ""
	if r.PushToS3 {
		artifactURL = s.pushArtifact(ctx, r, outPath)
	}
	r.SetArtifact(outPath, artifactURL)
	s.persist(r)

	if err := s.transition(r, StatusCompleted); err != nil {
		return err
	}
	s.progress(r, progressCompleted)
	s.persist(r)

	s.logger.Info("run completed",
		slog.String("run_id", r.ID),
		slog.String("artifact", outPath),
		slog.Int("scenes", len(scenes)),
	)
	s.notifier.Notify(Event{
		Kind:         EventCompleted,
		RunID:        r.ID,
		Message:      "video ready",
		Percent:      progressCompleted,
		ArtifactPath: outPath,
	})
	return nil
}

// processScene synthesizes one scene's audio and image. Both synthesizers
// absorb their own failures into fallback assets, so this always returns a
// usable asset pair.
func (s *PipelineService) processScene(ctx context.Context, r *Run, text string, index int) SceneAsset {
	audioRes := s.audio.Synthesize(ctx, text, index)
	imageRes := s.image.Synthesize(ctx, text, index, audioRes.Duration)

	asset := SceneAsset{
		Index:               index,
		Text:                text,
		AudioPath:           audioRes.Path,
		AudioDuration:       audioRes.Duration,
		AudioFallback:       audioRes.Fallback,
		AudioFallbackReason: string(audioRes.Reason),
		ImagePath:           imageRes.Path,
		ImageFallback:       imageRes.Fallback,
		ImageFallbackReason: string(imageRes.Reason),
	}

	var warnings []string
	if asset.AudioFallback {
		warnings = append(warnings, fmt.Sprintf("audio fallback (%s)", asset.AudioFallbackReason))
	}
	if asset.ImageFallback {
		warnings = append(warnings, fmt.Sprintf("image fallback (%s)", asset.ImageFallbackReason))
	}
	if len(warnings) > 0 {
		s.logger.Warn("scene degraded to fallback assets",
			slog.String("run_id", r.ID),
			slog.Int("scene", index),
			slog.String("detail", strings.Join(warnings, ", ")),
		)
		s.notifier.Notify(Event{
			Kind:    EventStatus,
			RunID:   r.ID,
			Message: fmt.Sprintf("scene %d: %s", index, strings.Join(warnings, ", ")),
		})
	}
	return asset
}

// pushArtifact uploads the final video to S3. Upload failure is non-fatal:
// the local artifact still exists.
func (s *PipelineService) pushArtifact(ctx context.Context, r *Run, path string) string {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("could not open artifact for upload",
			slog.String("run_id", r.ID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	defer f.Close()

	key := fmt.Sprintf("videos/%s/%s", r.ID, filepath.Base(path))
	url, err := s.store.UploadToS3(ctx, key, f)
	if err != nil {
		s.logger.Warn("artifact upload failed, keeping local copy",
			slog.String("run_id", r.ID),
			slog.String("error", err.Error()),
		)
		return ""
	}

	s.logger.Info("artifact uploaded",
		slog.String("run_id", r.ID),
		slog.String("url", url),
	)
	return url
}

func (s *PipelineService) transition(r *Run, status Status) error {
	if err := r.TransitionTo(status); err != nil {
		return fmt.Errorf("transition to %s: %w", status, err)
	}
	s.persist(r)
	s.notifier.Notify(Event{Kind: EventStatus, RunID: r.ID, Message: string(status)})
	return nil
}

func (s *PipelineService) progress(r *Run, pct int) {
	r.UpdateProgress(pct)
	s.notifier.Notify(Event{Kind: EventProgress, RunID: r.ID, Percent: r.GetProgress()})
}

// persist saves the run state, logging instead of failing: a persistence
// hiccup must not abort a pipeline that is otherwise producing a video.
func (s *PipelineService) persist(r *Run) {
	if err := s.repo.Save(context.Background(), r); err != nil {
		s.logger.Error("failed to persist run state",
			slog.String("run_id", r.ID),
			slog.String("error", err.Error()),
		)
	}
}
