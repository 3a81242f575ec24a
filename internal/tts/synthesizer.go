package tts

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
)

// Silence fallback tiers. The length encodes the failure class so log and
// asset inspection can tell them apart without changing the contract shape.
const (
	silenceEmptyTextSec   = 1.0
	silenceUnavailableSec = 2.0
	silenceErrorSec       = 3.0
)

// Reason classifies why a fallback asset was substituted.
type Reason string

// Fallback reasons.
const (
	ReasonNone              Reason = ""
	ReasonEmptyText         Reason = "empty_text"
	ReasonEngineUnavailable Reason = "engine_unavailable"
	ReasonEngineError       Reason = "engine_error"
)

// Result is the outcome of one synthesis call. The fallback path is a
// first-class branch: callers can test Fallback and Reason directly.
type Result struct {
	// Path is the audio asset location. Always set.
	Path string
	// Duration is the asset length in seconds.
	Duration float64
	// Fallback is true when the asset is a silence placeholder.
	Fallback bool
	// Reason classifies the fallback, empty for real synthesis.
	Reason Reason
}

// MediaTools is the subset of media operations the synthesizer needs.
type MediaTools interface {
	Duration(ctx context.Context, path string) (float64, error)
	GenerateSilence(ctx context.Context, path string, seconds float64) error
}

// Synthesizer wraps an Engine with the never-fails-openly policy: every call
// returns a usable audio reference, substituting tiered silence on failure.
type Synthesizer struct {
	engine    Engine
	available bool
	tools     MediaTools
	dir       string
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer writing scene-indexed assets into dir.
// The available flag is the engine's capability result from initialization.
func NewSynthesizer(engine Engine, available bool, tools MediaTools, dir string, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		engine:    engine,
		available: available,
		tools:     tools,
		dir:       dir,
		logger:    logger,
	}
}

// Available reports the engine capability held by this synthesizer.
func (s *Synthesizer) Available() bool {
	return s.available
}

// Synthesize converts one scene's text into an audio asset. It never fails
// openly: engine unavailability, empty-after-sanitize text and synthesis
// errors all yield silence fallbacks of tiered lengths. Re-running for the
// same index overwrites the asset at that index.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, index int) Result {
	cleaned := sanitize(text)

	if cleaned == "" {
		s.logger.Warn("scene has no speakable text, using silence",
			slog.Int("scene", index),
		)
		return s.silenceFallback(ctx, index, silenceEmptyTextSec, ReasonEmptyText)
	}

	if !s.available || s.engine == nil {
		s.logger.Warn("tts engine unavailable, using silence",
			slog.Int("scene", index),
		)
		return s.silenceFallback(ctx, index, silenceUnavailableSec, ReasonEngineUnavailable)
	}

	outPath := filepath.Join(s.dir, fmt.Sprintf("scene_%d.wav", index))
	if err := s.engine.Synthesize(ctx, cleaned, outPath); err != nil {
		s.logger.Warn("tts synthesis failed, using silence",
			slog.Int("scene", index),
			slog.String("error", err.Error()),
		)
		return s.silenceFallback(ctx, index, silenceErrorSec, ReasonEngineError)
	}

	duration, err := s.tools.Duration(ctx, outPath)
	if err != nil {
		s.logger.Warn("generated audio is unreadable, using silence",
			slog.Int("scene", index),
			slog.String("error", err.Error()),
		)
		return s.silenceFallback(ctx, index, silenceErrorSec, ReasonEngineError)
	}

	return Result{Path: outPath, Duration: duration}
}

// silenceFallback writes the tiered silence asset for a scene index.
// Even a failed silence write returns a result; the assembler's own
// fallback layer covers a missing file.
func (s *Synthesizer) silenceFallback(ctx context.Context, index int, seconds float64, reason Reason) Result {
	suffix := "silent"
	if reason == ReasonEngineError {
		suffix = "error"
	}
	path := filepath.Join(s.dir, fmt.Sprintf("scene_%d_%s.wav", index, suffix))

	if err := s.tools.GenerateSilence(ctx, path, seconds); err != nil {
		s.logger.Error("failed to write silence fallback",
			slog.Int("scene", index),
			slog.String("error", err.Error()),
		)
	}

	return Result{
		Path:     path,
		Duration: seconds,
		Fallback: true,
		Reason:   reason,
	}
}

var (
	markdownChars = regexp.MustCompile("[*_`#]")
	whitespace    = regexp.MustCompile(`\s+`)
)

// sanitize strips markdown control characters and collapses whitespace so
// the engine receives plain prose.
func sanitize(text string) string {
	text = markdownChars.ReplaceAllString(text, "")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
