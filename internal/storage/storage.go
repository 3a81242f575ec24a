// Package storage provides the on-disk asset layout for pipeline runs and
// optional S3 delivery of final artifacts. It defines the Storage interface
// (port) with implementations for local disk and S3.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for asset storage. Implementations expose
// the directory layout used by the generation stages and optionally support
// S3 uploads for final video delivery.
type Storage interface {
	// AudioDir is where per-scene audio assets are written.
	AudioDir() string

	// ImageDir is where per-scene image assets are written.
	ImageDir() string

	// VideoDir is where final artifacts are written.
	VideoDir() string

	// ScratchDir is where intermediate and fallback assets are written.
	ScratchDir() string

	// NewVideoPath returns a unique, timestamp-qualified path for a new
	// final artifact inside VideoDir.
	NewVideoPath() string

	// CleanupScratch removes scratch files left over from a run. It is a
	// best-effort pass: cleanup continues past individual failures.
	CleanupScratch(ctx context.Context) error

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
