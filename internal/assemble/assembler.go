// Package assemble turns per-scene assets into the final video. It renders
// one clip per scene, concatenates the clips, and optionally mixes a
// background music track under the voice timeline.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adawatia/deoAI/internal/media"
)

// ErrNoScenes is returned when assembly is requested with no scenes.
var ErrNoScenes = errors.New("no scenes to assemble")

// fallbackFrameColor is the near-black frame used when a scene image is
// missing at assembly time.
const fallbackFrameColor = "0x101018"

// missingAudioDuration is the silence length substituted when a scene's
// audio file is missing at assembly time.
const missingAudioDuration = 2.0

// Scene is one scene's input to assembly: an image shown for the duration
// of its narration audio.
type Scene struct {
	Index         int
	ImagePath     string
	AudioPath     string
	AudioDuration float64
}

// Options controls the rendered output.
type Options struct {
	Width     int
	Height    int
	FPS       int
	Preset    string
	CRF       int
	// MusicGain is the background music volume relative to the voice
	// track (0.0 to 1.0).
	MusicGain float64
}

// Assembler builds the final video from scene assets. It carries its own
// fallback layer: scenes whose assets went missing between synthesis and
// assembly are patched with placeholder frames and silence rather than
// failing the run.
type Assembler struct {
	processor  media.Processor
	scratchDir string
	logger     *slog.Logger
}

// New creates an Assembler that writes intermediate files to scratchDir.
func New(processor media.Processor, scratchDir string, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		processor:  processor,
		scratchDir: scratchDir,
		logger:     logger,
	}
}

// Assemble renders each scene to a clip, joins the clips, and mixes in the
// background music track when musicPath is non-empty. The finished video is
// written to outPath.
//
// A missing scene image or audio file is replaced with a placeholder at this
// stage; a clip render or join failure aborts the assembly. A music mix
// failure degrades to the voice-only timeline instead of failing.
func (a *Assembler) Assemble(ctx context.Context, scenes []Scene, musicPath, outPath string, opts Options) error {
	if len(scenes) == 0 {
		return ErrNoScenes
	}

	clipOpts := media.ClipOpts{
		Width:  opts.Width,
		Height: opts.Height,
		FPS:    opts.FPS,
		Preset: opts.Preset,
		CRF:    opts.CRF,
	}

	clipPaths := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("assembly cancelled: %w", err)
		}

		imagePath, audioPath, err := a.patchScene(ctx, scene, opts)
		if err != nil {
			return err
		}

		clipPath := filepath.Join(a.scratchDir, fmt.Sprintf("asm_clip_%d.mp4", scene.Index))
		if err := a.processor.RenderSceneClip(ctx, imagePath, audioPath, clipPath, clipOpts); err != nil {
			return fmt.Errorf("render clip for scene %d: %w", scene.Index, err)
		}
		clipPaths = append(clipPaths, clipPath)
	}

	// Join onto a voice-only timeline first; music is layered on afterwards
	// so a mix failure still leaves a complete video.
	timelinePath := outPath
	withMusic := musicPath != "" && fileExists(musicPath)
	if musicPath != "" && !withMusic {
		a.logger.Warn("background music file not found, producing voice-only video",
			slog.String("music_path", musicPath),
		)
	}
	if withMusic {
		timelinePath = filepath.Join(a.scratchDir, "asm_timeline.mp4")
	}

	if err := a.processor.JoinVideos(ctx, clipPaths, timelinePath); err != nil {
		return fmt.Errorf("join scene clips: %w", err)
	}

	if !withMusic {
		return nil
	}

	if err := a.processor.MixBackground(ctx, timelinePath, musicPath, outPath, opts.MusicGain); err != nil {
		a.logger.Warn("background music mix failed, falling back to voice-only video",
			slog.String("error", err.Error()),
		)
		if err := copyFile(timelinePath, outPath); err != nil {
			return fmt.Errorf("recover voice-only video: %w", err)
		}
	}
	return nil
}

// patchScene substitutes placeholders for missing scene assets. Placeholder
// generation failures are fatal here: with no image and no frame there is
// nothing left to render.
func (a *Assembler) patchScene(ctx context.Context, scene Scene, opts Options) (imagePath, audioPath string, err error) {
	imagePath = scene.ImagePath
	if !fileExists(imagePath) {
		a.logger.Warn("scene image missing at assembly, substituting placeholder frame",
			slog.Int("scene", scene.Index),
			slog.String("image_path", scene.ImagePath),
		)
		imagePath = filepath.Join(a.scratchDir, fmt.Sprintf("asm_frame_%d.png", scene.Index))
		if err := a.processor.GenerateColorFrame(ctx, imagePath, opts.Width, opts.Height, fallbackFrameColor); err != nil {
			return "", "", fmt.Errorf("generate placeholder frame for scene %d: %w", scene.Index, err)
		}
	}

	audioPath = scene.AudioPath
	if !fileExists(audioPath) {
		a.logger.Warn("scene audio missing at assembly, substituting silence",
			slog.Int("scene", scene.Index),
			slog.String("audio_path", scene.AudioPath),
		)
		audioPath = filepath.Join(a.scratchDir, fmt.Sprintf("asm_silence_%d.wav", scene.Index))
		if err := a.processor.GenerateSilence(ctx, audioPath, missingAudioDuration); err != nil {
			return "", "", fmt.Errorf("generate placeholder silence for scene %d: %w", scene.Index, err)
		}
	}

	return imagePath, audioPath, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
