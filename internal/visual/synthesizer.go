package visual

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// fallbackColor is the near-black frame substituted when synthesis fails.
const fallbackColor = "0x101018"

// Reason classifies why a fallback frame was substituted.
type Reason string

// Fallback reasons.
const (
	ReasonNone              Reason = ""
	ReasonEngineUnavailable Reason = "engine_unavailable"
	ReasonEngineError       Reason = "engine_error"
)

// Result is the outcome of one image synthesis call.
type Result struct {
	// Path is the image asset location. Always set.
	Path string
	// Fallback is true when the asset is a placeholder frame.
	Fallback bool
	// Reason classifies the fallback, empty for real synthesis.
	Reason Reason
}

// FrameTools is the subset of media operations the synthesizer needs.
type FrameTools interface {
	GenerateColorFrame(ctx context.Context, path string, w, h int, color string) error
}

// Synthesizer wraps an Engine with the never-fails-openly policy: every call
// returns a usable image reference, substituting a solid frame on failure.
type Synthesizer struct {
	engine    Engine
	available bool
	tools     FrameTools
	dir       string
	width     int
	height    int
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer writing scene-indexed assets into dir.
// Fallback frames are generated at the given canonical resolution.
func NewSynthesizer(engine Engine, available bool, tools FrameTools, dir string, width, height int, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		engine:    engine,
		available: available,
		tools:     tools,
		dir:       dir,
		width:     width,
		height:    height,
		logger:    logger,
	}
}

// Available reports the engine capability held by this synthesizer.
func (s *Synthesizer) Available() bool {
	return s.available
}

// Synthesize produces one scene's still image. The paired audio duration is
// advisory only: the image carries no intrinsic duration, the assembler
// stretches the frame to match the audio. Re-running for the same index
// overwrites the asset at that index.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, index int, audioDuration float64) Result {
	if !s.available || s.engine == nil {
		s.logger.Warn("image engine unavailable, using placeholder frame",
			slog.Int("scene", index),
		)
		return s.frameFallback(ctx, index, ReasonEngineUnavailable)
	}

	outPath := filepath.Join(s.dir, fmt.Sprintf("scene_%d.jpg", index))
	prompt := buildPrompt(text)
	seed := sceneSeed(index)

	s.logger.Debug("generating scene image",
		slog.Int("scene", index),
		slog.Float64("paired_audio_sec", audioDuration),
		slog.Int("seed", seed),
	)

	if err := s.engine.Generate(ctx, prompt, seed, outPath); err != nil {
		s.logger.Warn("image synthesis failed, using placeholder frame",
			slog.Int("scene", index),
			slog.String("error", err.Error()),
		)
		return s.frameFallback(ctx, index, ReasonEngineError)
	}

	return Result{Path: outPath}
}

// frameFallback writes the solid placeholder frame for a scene index.
// A failed frame write still returns a result; the assembler's own fallback
// layer covers a missing file.
func (s *Synthesizer) frameFallback(ctx context.Context, index int, reason Reason) Result {
	path := filepath.Join(s.dir, fmt.Sprintf("scene_%d_fallback.png", index))

	if err := s.tools.GenerateColorFrame(ctx, path, s.width, s.height, fallbackColor); err != nil {
		s.logger.Error("failed to write placeholder frame",
			slog.Int("scene", index),
			slog.String("error", err.Error()),
		)
	}

	return Result{Path: path, Fallback: true, Reason: reason}
}

// buildPrompt wraps scene text in the house illustration style.
func buildPrompt(text string) string {
	return fmt.Sprintf(
		"High-quality, cinematic, detailed illustration: %s, a captivating scene, concept art, digital painting",
		text,
	)
}

// sceneSeed derives a deterministic per-scene seed so re-runs reproduce the
// same imagery.
func sceneSeed(index int) int {
	return index*42 + 7
}
