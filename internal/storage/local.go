package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// LocalStorage implements the Storage interface using local disk. Assets are
// laid out under a base directory:
//
//	<base>/audio    per-scene audio
//	<base>/images   per-scene images
//	<base>/videos   final artifacts
//	<base>/scratch  intermediate and fallback assets
type LocalStorage struct {
	baseDir    string
	audioDir   string
	imageDir   string
	videoDir   string
	scratchDir string
}

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates a LocalStorage rooted at baseDir, creating the
// directory layout if absent. An empty baseDir defaults to a "deoai"
// directory under the system temp dir.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "deoai")
	}

	s := &LocalStorage{
		baseDir:    baseDir,
		audioDir:   filepath.Join(baseDir, "audio"),
		imageDir:   filepath.Join(baseDir, "images"),
		videoDir:   filepath.Join(baseDir, "videos"),
		scratchDir: filepath.Join(baseDir, "scratch"),
	}

	for _, dir := range []string{s.audioDir, s.imageDir, s.videoDir, s.scratchDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create asset directory %s: %w", dir, err)
		}
	}

	return s, nil
}

// BaseDir returns the storage root.
func (s *LocalStorage) BaseDir() string { return s.baseDir }

// AudioDir is where per-scene audio assets are written.
func (s *LocalStorage) AudioDir() string { return s.audioDir }

// ImageDir is where per-scene image assets are written.
func (s *LocalStorage) ImageDir() string { return s.imageDir }

// VideoDir is where final artifacts are written.
func (s *LocalStorage) VideoDir() string { return s.videoDir }

// ScratchDir is where intermediate and fallback assets are written.
func (s *LocalStorage) ScratchDir() string { return s.scratchDir }

// NewVideoPath returns a unique final artifact path. The name carries a
// timestamp plus a short random suffix so concurrent and same-second runs
// never collide.
func (s *LocalStorage) NewVideoPath() string {
	name := fmt.Sprintf("deoai_%s_%s.mp4",
		time.Now().Format("20060102_150405"),
		uuid.NewString()[:8],
	)
	return filepath.Join(s.videoDir, name)
}

// CleanupScratch removes all files directly under the scratch directory.
// It continues past individual failures, returning the first error.
func (s *LocalStorage) CleanupScratch(ctx context.Context) error {
	entries, err := os.ReadDir(s.scratchDir)
	if err != nil {
		return fmt.Errorf("read scratch directory: %w", err)
	}

	var firstErr error
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.scratchDir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove scratch file %s: %w", path, err)
			}
		}
	}
	return firstErr
}

// UploadToS3 is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}
