// Package run provides the Run aggregate for the script-to-video pipeline.
// It includes the Run entity with guarded state transitions, repository
// interfaces for persistence, notification types, and the orchestrating
// PipelineService.
package run

import (
	"errors"
	"sync"
	"time"
)

// Status represents the current state of a Run.
type Status string

const (
	// StatusIdle indicates the run has been created but not started.
	StatusIdle Status = "IDLE"
	// StatusSegmenting indicates the script is being split into scenes.
	StatusSegmenting Status = "SEGMENTING"
	// StatusProcessing indicates per-scene audio/image synthesis is underway.
	StatusProcessing Status = "PROCESSING"
	// StatusAssembling indicates the final video is being assembled.
	StatusAssembling Status = "ASSEMBLING"
	// StatusCompleted indicates the run finished with an artifact.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the run ended without an artifact.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed. Every
// non-terminal state carries an error-absorbing edge to FAILED.
var validTransitions = map[Status][]Status{
	StatusIdle:       {StatusSegmenting, StatusFailed},
	StatusSegmenting: {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusAssembling, StatusFailed},
	StatusAssembling: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SceneAsset is the audio+image pair bound to one scene index. Exactly one
// asset exists per scene, even when both halves are fallback placeholders.
type SceneAsset struct {
	// Index is the 0-based scene position in script order.
	Index int `json:"index"`
	// Text is the scene's narration text.
	Text string `json:"text"`
	// AudioPath locates the audio asset (real or silence fallback).
	AudioPath string `json:"audio_path"`
	// AudioDuration is the audio length in seconds; it drives the paired
	// image's display time.
	AudioDuration float64 `json:"audio_duration"`
	// AudioFallback is true when the audio is a silence placeholder.
	AudioFallback bool `json:"audio_fallback"`
	// AudioFallbackReason classifies the audio fallback.
	AudioFallbackReason string `json:"audio_fallback_reason,omitempty"`
	// ImagePath locates the image asset (real or placeholder frame).
	ImagePath string `json:"image_path"`
	// ImageFallback is true when the image is a placeholder frame.
	ImageFallback bool `json:"image_fallback"`
	// ImageFallbackReason classifies the image fallback.
	ImageFallbackReason string `json:"image_fallback_reason,omitempty"`
}

// Run represents one end-to-end pipeline invocation.
type Run struct {
	mu sync.RWMutex

	// ID is the unique identifier for this run.
	ID string
	// Status is the current run state.
	Status Status
	// SceneCount is the number of scenes the script segmented into.
	SceneCount int
	// Assets holds one entry per scene, in scene order.
	Assets []SceneAsset
	// Progress is the percentage of completion (0-100), monotonically
	// non-decreasing for the lifetime of the run.
	Progress int
	// Error contains any error message if the run failed.
	Error string
	// MusicPath is the optional background track location.
	MusicPath string
	// PushToS3 indicates whether to upload the artifact to S3.
	PushToS3 bool
	// ArtifactPath is the local path to the final video.
	ArtifactPath string
	// ArtifactURL is the S3 URL if the artifact was pushed.
	ArtifactURL string
	// CreatedAt is when the run was created.
	CreatedAt time.Time
	// UpdatedAt is when the run was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a new Run with a generated ID in the IDLE state.
func New() *Run {
	return NewWithID(GenerateID())
}

// NewWithID creates a new Run with the specified ID in the IDLE state.
// Useful for testing or when the ID is generated externally.
func NewWithID(runID string) *Run {
	now := time.Now()
	return &Run{
		ID:        runID,
		Status:    StatusIdle,
		Assets:    make([]SceneAsset, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the run status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (r *Run) TransitionTo(status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !canTransition(r.Status, status) {
		return ErrInvalidTransition
	}

	r.Status = status
	r.UpdatedAt = time.Now()

	switch status {
	case StatusSegmenting:
		r.StartedAt = r.UpdatedAt
	case StatusCompleted, StatusFailed:
		r.CompletedAt = r.UpdatedAt
	}

	return nil
}

// Fail transitions the run to FAILED with an error message.
func (r *Run) Fail(errMsg string) error {
	r.mu.Lock()
	r.Error = errMsg
	r.mu.Unlock()
	return r.TransitionTo(StatusFailed)
}

// GetStatus returns the current run status (thread-safe).
func (r *Run) GetStatus() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// SetSceneCount records how many scenes the script produced.
func (r *Run) SetSceneCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SceneCount = n
	r.UpdatedAt = time.Now()
}

// AppendAsset adds the next scene's asset pair.
func (r *Run) AppendAsset(asset SceneAsset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Assets = append(r.Assets, asset)
	r.UpdatedAt = time.Now()
}

// UpdateProgress raises the progress percentage. Values below the current
// progress are ignored so reported progress never decreases; values above
// 100 are clamped.
func (r *Run) UpdateProgress(progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if progress > 100 {
		progress = 100
	}
	if progress <= r.Progress {
		return
	}
	r.Progress = progress
	r.UpdatedAt = time.Now()
}

// GetProgress returns the current progress (thread-safe).
func (r *Run) GetProgress() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Progress
}

// SetArtifact sets the final artifact path and optional S3 URL.
func (r *Run) SetArtifact(path, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ArtifactPath = path
	r.ArtifactURL = url
	r.UpdatedAt = time.Now()
}

// IsTerminal returns true if the run is in a terminal state.
func (r *Run) IsTerminal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Clone creates a deep copy of the run for safe reads.
func (r *Run) Clone() *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assets := make([]SceneAsset, len(r.Assets))
	copy(assets, r.Assets)

	return &Run{
		ID:           r.ID,
		Status:       r.Status,
		SceneCount:   r.SceneCount,
		Assets:       assets,
		Progress:     r.Progress,
		Error:        r.Error,
		MusicPath:    r.MusicPath,
		PushToS3:     r.PushToS3,
		ArtifactPath: r.ArtifactPath,
		ArtifactURL:  r.ArtifactURL,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
	}
}
