package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DATA_DIR", "TTS_COMMAND", "TTS_VOICE", "IMAGE_BASE_URL",
		"RENDER_PROFILE", "RUN_STORE", "DB_PATH",
		"S3_BUCKET", "S3_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
		"LOG_FORMAT", "LOG_LEVEL",
	} {
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/tmp/deoai", cfg.DataDir)
	assert.Equal(t, "edge-tts", cfg.TTSCommand)
	assert.Equal(t, "https://image.pollinations.ai", cfg.ImageBaseURL)
	assert.Equal(t, "memory", cfg.RunStore)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("DATA_DIR", "/custom/data")
	t.Setenv("TTS_COMMAND", "/opt/tts/bin/say")
	t.Setenv("RUN_STORE", "sqlite")
	t.Setenv("DB_PATH", "/custom/runs.db")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "/custom/data", cfg.DataDir)
	assert.Equal(t, "/opt/tts/bin/say", cfg.TTSCommand)
	assert.Equal(t, "sqlite", cfg.RunStore)
	assert.Equal(t, "/custom/runs.db", cfg.DBPath)
	assert.True(t, cfg.S3Enabled())
}

func TestLoad_InvalidRunStore(t *testing.T) {
	clearEnv(t)
	t.Setenv("RUN_STORE", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRunStore)
}

func TestString_MasksSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA-SECRET")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "very-secret")

	cfg, err := Load()
	require.NoError(t, err)

	s := cfg.String()
	assert.NotContains(t, s, "AKIA-SECRET")
	assert.NotContains(t, s, "very-secret")
}

func TestNewLogger(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		cfg := &Config{LogFormat: "json", LogLevel: "debug"}
		logger := cfg.NewLogger()
		require.NotNil(t, logger)
	})

	t.Run("text format default level", func(t *testing.T) {
		cfg := &Config{LogFormat: "text", LogLevel: "unknown"}
		logger := cfg.NewLogger()
		require.NotNil(t, logger)
	})
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLogLevel(in), "level %q", in)
	}
}

func TestLoadProfile(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		p, err := LoadProfile("")
		require.NoError(t, err)
		assert.Equal(t, DefaultProfile(), p)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile.yaml")
		data := "width: 1280\nheight: 720\nmusic_gain: 0.1\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0600))

		p, err := LoadProfile(path)
		require.NoError(t, err)
		assert.Equal(t, 1280, p.Width)
		assert.Equal(t, 720, p.Height)
		assert.InDelta(t, 0.1, p.MusicGain, 1e-9)
		// Untouched fields keep defaults
		assert.Equal(t, 24, p.FPS)
		assert.Equal(t, "fast", p.Preset)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile.yaml")
		require.NoError(t, os.WriteFile(path, []byte("width: -1\n"), 0600))

		_, err := LoadProfile(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidProfile)
	})
}
