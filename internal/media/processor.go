// Package media provides audio, image and video processing capabilities.
package media

import "context"

// ClipOpts controls how a still-image scene clip is encoded.
type ClipOpts struct {
	// Width and Height define the output resolution. Images are scaled to
	// fit and padded with black to reach the exact dimensions.
	Width  int
	Height int
	// FPS is the output frame rate.
	FPS int
	// Preset and CRF are passed to libx264.
	Preset string
	CRF    int
}

// Processor defines the interface for media operations.
// Implementations should use ffmpeg or similar tools.
type Processor interface {
	// Duration returns the duration in seconds of a media file.
	Duration(ctx context.Context, path string) (float64, error)

	// GenerateSilence writes a mono WAV of the given length to path.
	GenerateSilence(ctx context.Context, path string, seconds float64) error

	// GenerateColorFrame writes a single solid-color PNG frame at the
	// given resolution to path. The color is an ffmpeg color name or hex
	// value such as "black" or "0x101018".
	GenerateColorFrame(ctx context.Context, path string, w, h int, color string) error

	// RenderSceneClip builds a video segment from a still image and an
	// audio track. The clip lasts exactly as long as the audio.
	RenderSceneClip(ctx context.Context, imagePath, audioPath, outPath string, opts ClipOpts) error

	// JoinVideos concatenates video files in order into a single output.
	// It first attempts a fast stream copy and falls back to re-encoding
	// when the copy fails due to incompatible streams.
	JoinVideos(ctx context.Context, videoPaths []string, output string) error

	// MixBackground mixes a background track under a video's existing
	// audio at the given linear gain. The track is looped to cover the
	// video and the output keeps the video's own duration.
	MixBackground(ctx context.Context, videoPath, musicPath, outPath string, gain float64) error
}
