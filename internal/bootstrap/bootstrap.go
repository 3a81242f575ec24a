// Package bootstrap provides dependency initialization for the video
// generation pipeline.
package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/adawatia/deoAI/internal/assemble"
	"github.com/adawatia/deoAI/internal/config"
	"github.com/adawatia/deoAI/internal/media"
	"github.com/adawatia/deoAI/internal/run"
	"github.com/adawatia/deoAI/internal/script"
	"github.com/adawatia/deoAI/internal/storage"
	"github.com/adawatia/deoAI/internal/tts"
	"github.com/adawatia/deoAI/internal/visual"
)

// Dependencies holds all initialized dependencies for the application.
type Dependencies struct {
	Pipeline *run.PipelineService

	closers []io.Closer
}

// Close releases resources held by the dependencies (database handles).
func (d *Dependencies) Close() error {
	var firstErr error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	profile, err := config.LoadProfile(cfg.RenderProfilePath)
	if err != nil {
		return nil, fmt.Errorf("load render profile: %w", err)
	}

	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	processor := media.NewFFmpegProcessor("")

	// TTS: a missing engine is not an error, the audio stage degrades to
	// silence fallbacks.
	ttsEngine, ttsAvailable := tts.NewCommandEngine(cfg.TTSCommand, cfg.TTSVoice)
	if !ttsAvailable {
		logger.Warn("tts engine unavailable, narration will be silent",
			slog.String("command", cfg.TTSCommand),
		)
	}
	audioSynth := tts.NewSynthesizer(ttsEngine, ttsAvailable, processor, store.AudioDir(), logger)

	// Images: same capability model as TTS.
	imageEngine, imageAvailable := visual.NewHTTPEngine(cfg.ImageBaseURL, profile.Width, profile.Height)
	if !imageAvailable {
		logger.Warn("image engine unavailable, scenes will use placeholder frames")
	}
	imageSynth := visual.NewSynthesizer(imageEngine, imageAvailable, processor, store.ImageDir(), profile.Width, profile.Height, logger)

	assembler := assemble.New(processor, store.ScratchDir(), logger)

	deps := &Dependencies{}

	repo, err := initRepository(cfg, logger, deps)
	if err != nil {
		return nil, err
	}

	deps.Pipeline = run.NewPipelineService(
		script.Segment,
		audioSynth,
		imageSynth,
		assembler,
		store,
		repo,
		assemble.Options{
			Width:     profile.Width,
			Height:    profile.Height,
			FPS:       profile.FPS,
			Preset:    profile.Preset,
			CRF:       profile.CRF,
			MusicGain: profile.MusicGain,
		},
		logger,
	)

	return deps, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.DataDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("data_dir", cfg.DataDir),
	)
	return localStore, nil
}

// initRepository creates the run repository selected by configuration.
func initRepository(cfg *config.Config, logger *slog.Logger, deps *Dependencies) (run.Repository, error) {
	if strings.EqualFold(cfg.RunStore, "sqlite") {
		repo, err := run.NewSQLiteRepository(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("create sqlite repository: %w", err)
		}
		deps.closers = append(deps.closers, repo)
		logger.Info("sqlite run store configured",
			slog.String("db_path", cfg.DBPath),
		)
		return repo, nil
	}
	return run.NewMemoryRepository(), nil
}
