// Package server provides the HTTP server for the video generation API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// CreateRunRequest is the HTTP request body for starting a new run.
type CreateRunRequest struct {
	// Script is the raw narration script to turn into a video.
	Script string `json:"script" validate:"required"`
	// BackgroundMusicPath is an optional server-local path to a music file.
	BackgroundMusicPath string `json:"background_music_path,omitempty"`
	// PushToS3 indicates whether to upload the final video to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// CreateRunResponse is the HTTP response after starting a run.
type CreateRunResponse struct {
	// ID is the unique identifier for the created run.
	ID string `json:"id"`
	// Status is the initial run status.
	Status string `json:"status"`
	// Warnings carries non-fatal issues detected at submission time.
	Warnings []string `json:"warnings,omitempty"`
}

// SceneResponse summarizes one scene's assets.
type SceneResponse struct {
	// Index is the 0-based scene position.
	Index int `json:"index"`
	// Text is the scene's narration text.
	Text string `json:"text"`
	// AudioDuration is the narration length in seconds.
	AudioDuration float64 `json:"audio_duration"`
	// AudioFallback is true when the audio is a silence placeholder.
	AudioFallback bool `json:"audio_fallback"`
	// AudioFallbackReason classifies the audio fallback.
	AudioFallbackReason string `json:"audio_fallback_reason,omitempty"`
	// ImageFallback is true when the image is a placeholder frame.
	ImageFallback bool `json:"image_fallback"`
	// ImageFallbackReason classifies the image fallback.
	ImageFallbackReason string `json:"image_fallback_reason,omitempty"`
}

// RunResponse is the HTTP response for getting run details.
type RunResponse struct {
	// ID is the unique identifier for the run.
	ID string `json:"id"`
	// Status is the current run status.
	Status string `json:"status"`
	// Progress is the percentage of completion (0-100).
	Progress int `json:"progress"`
	// SceneCount is how many scenes the script segmented into.
	SceneCount int `json:"scene_count"`
	// Scenes summarizes per-scene synthesis results.
	Scenes []SceneResponse `json:"scenes,omitempty"`
	// Error contains any error message if the run failed.
	Error string `json:"error,omitempty"`
	// ArtifactPath is the server-local path of the final video (if completed).
	ArtifactPath string `json:"artifact_path,omitempty"`
	// ArtifactURL is the S3 URL of the final video (if pushed).
	ArtifactURL string `json:"artifact_url,omitempty"`
}

// RunListResponse is the HTTP response for listing runs.
type RunListResponse struct {
	Runs []RunResponse `json:"runs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
