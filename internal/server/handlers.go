package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/adawatia/deoAI/internal/run"
)

// RunService is the slice of the pipeline service the HTTP layer needs.
type RunService interface {
	StartRun(ctx context.Context, input run.StartInput) (*run.Run, error)
	Execute(ctx context.Context, r *run.Run, script string)
	GetRun(ctx context.Context, id string) (*run.Run, error)
	ListRuns(ctx context.Context) ([]*run.Run, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            RunService
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateRun only creates the run and returns immediately
// without starting the pipeline. Used by tests.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service RunService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateRun handles POST /runs requests.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	// A bad music path degrades to voice-only later; surface it early as a
	// warning rather than rejecting the run.
	var warnings []string
	if req.BackgroundMusicPath != "" {
		if _, err := os.Stat(req.BackgroundMusicPath); err != nil {
			warnings = append(warnings, "background music file not found, video will be voice-only")
		}
	}

	input := run.StartInput{
		Script:    req.Script,
		MusicPath: req.BackgroundMusicPath,
		PushToS3:  req.PushToS3,
	}

	created, err := h.service.StartRun(r.Context(), input)
	if err != nil {
		h.logger.Error("failed to create run",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create run", "RUN_CREATION_FAILED")
		return
	}

	// Run the pipeline in the background with a detached context so the
	// run survives the request ending.
	if h.enableAsyncProcess {
		go h.service.Execute(context.WithoutCancel(r.Context()), created, req.Script)
	}

	h.logger.Info("run created",
		slog.String("run_id", created.ID),
		slog.Int("script_bytes", len(req.Script)),
	)

	writeJSON(w, http.StatusAccepted, CreateRunResponse{
		ID:       created.ID,
		Status:   string(created.Status),
		Warnings: warnings,
	})
}

// GetRun handles GET /runs/{id} requests.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run ID is required", "MISSING_RUN_ID")
		return
	}

	found, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, run.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found", "RUN_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get run",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get run", "RUN_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(found, true))
}

// ListRuns handles GET /runs requests.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.ListRuns(r.Context())
	if err != nil {
		h.logger.Error("failed to list runs",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list runs", "RUN_LIST_FAILED")
		return
	}

	resp := RunListResponse{Runs: make([]RunResponse, 0, len(runs))}
	for _, found := range runs {
		resp.Runs = append(resp.Runs, toRunResponse(found, false))
	}
	writeJSON(w, http.StatusOK, resp)
}

// toRunResponse maps a domain run to its HTTP representation. Scene details
// are included only for single-run fetches.
func toRunResponse(found *run.Run, includeScenes bool) RunResponse {
	resp := RunResponse{
		ID:         found.ID,
		Status:     string(found.Status),
		Progress:   found.Progress,
		SceneCount: found.SceneCount,
		Error:      found.Error,
	}

	if found.Status == run.StatusCompleted {
		resp.ArtifactPath = found.ArtifactPath
		resp.ArtifactURL = found.ArtifactURL
	}

	if includeScenes {
		for _, asset := range found.Assets {
			resp.Scenes = append(resp.Scenes, SceneResponse{
				Index:               asset.Index,
				Text:                asset.Text,
				AudioDuration:       asset.AudioDuration,
				AudioFallback:       asset.AudioFallback,
				AudioFallbackReason: asset.AudioFallbackReason,
				ImageFallback:       asset.ImageFallback,
				ImageFallbackReason: asset.ImageFallbackReason,
			})
		}
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
