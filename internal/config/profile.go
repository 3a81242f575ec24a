package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidProfile is returned when a render profile fails validation.
var ErrInvalidProfile = errors.New("config: invalid render profile")

// Profile controls how the final video is rendered. It is loaded from an
// optional YAML file; missing fields keep their defaults.
type Profile struct {
	// Width and Height define the canonical output resolution. Fallback
	// frames are generated at this resolution as well.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// FPS is the output frame rate. Static-image scenes still encode at
	// this rate for player compatibility.
	FPS int `yaml:"fps"`

	// Preset and CRF are passed to libx264.
	Preset string `yaml:"preset"`
	CRF    int    `yaml:"crf"`

	// MusicGain is the linear volume applied to the background track
	// before mixing it under the narration.
	MusicGain float64 `yaml:"music_gain"`
}

// DefaultProfile returns the built-in render profile: 1920x1080 at 24 fps
// with the background bed at 20% volume.
func DefaultProfile() Profile {
	return Profile{
		Width:     1920,
		Height:    1080,
		FPS:       24,
		Preset:    "fast",
		CRF:       23,
		MusicGain: 0.2,
	}
}

// LoadProfile reads a render profile from a YAML file, layered on top of
// the defaults. An empty path returns the defaults unchanged.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 - path comes from operator configuration
	if err != nil {
		return Profile{}, fmt.Errorf("read render profile: %w", err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse render profile: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Profile{}, err
	}

	return p, nil
}

// Validate checks the profile for values ffmpeg would reject.
func (p Profile) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidProfile, p.Width, p.Height)
	}
	if p.FPS <= 0 {
		return fmt.Errorf("%w: fps %d", ErrInvalidProfile, p.FPS)
	}
	if p.MusicGain < 0 || p.MusicGain > 1 {
		return fmt.Errorf("%w: music_gain %.2f outside [0,1]", ErrInvalidProfile, p.MusicGain)
	}
	return nil
}
