// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidRunStore is returned when RUN_STORE is not a known backend.
	ErrInvalidRunStore = errors.New("config: RUN_STORE must be \"memory\" or \"sqlite\"")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// DataDir is the root for generated assets. Audio, image, video and
	// scratch directories are created underneath it.
	DataDir string `env:"DATA_DIR, default=/tmp/deoai" json:"data_dir"`

	// TTS engine settings. TTSCommand is the synthesis CLI; when empty or
	// not on PATH the audio stage degrades to silence fallbacks.
	TTSCommand string `env:"TTS_COMMAND, default=edge-tts" json:"tts_command"`
	TTSVoice   string `env:"TTS_VOICE, default=en-US-GuyNeural" json:"tts_voice"`

	// Image engine settings. ImageBaseURL is a prompt-addressed image
	// service; when empty the image stage degrades to placeholder frames.
	ImageBaseURL string `env:"IMAGE_BASE_URL, default=https://image.pollinations.ai" json:"image_base_url"`

	// RenderProfilePath points to an optional YAML render profile
	// (resolution, fps, codec, music gain). Empty means built-in defaults.
	RenderProfilePath string `env:"RENDER_PROFILE" json:"render_profile,omitempty"`

	// Run persistence settings
	RunStore string `env:"RUN_STORE, default=memory" json:"run_store"` // "memory" or "sqlite"
	DBPath   string `env:"DB_PATH, default=/tmp/deoai/runs.db" json:"db_path"`

	// Optional S3 settings for pushing final artifacts
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration values are coherent.
func (c *Config) Validate() error {
	switch strings.ToLower(c.RunStore) {
	case "memory", "sqlite":
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidRunStore, c.RunStore)
	}
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DataDir: %s, TTSCommand: %s, ImageBaseURL: %s, RunStore: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DataDir,
		c.TTSCommand,
		c.ImageBaseURL,
		c.RunStore,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
