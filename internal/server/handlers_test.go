package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adawatia/deoAI/internal/run"
)

// fakeService implements RunService for handler tests.
type fakeService struct {
	startErr error
	getRun   *run.Run
	getErr   error
	listRuns []*run.Run
	listErr  error
	started  []run.StartInput
	executed int
}

func (f *fakeService) StartRun(_ context.Context, input run.StartInput) (*run.Run, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, input)
	return run.NewWithID("run-1700000000-abcd1234"), nil
}

func (f *fakeService) Execute(_ context.Context, _ *run.Run, _ string) {
	f.executed++
}

func (f *fakeService) GetRun(_ context.Context, _ string) (*run.Run, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getRun, nil
}

func (f *fakeService) ListRuns(_ context.Context) ([]*run.Run, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listRuns, nil
}

func newTestRouter(svc RunService) http.Handler {
	h := NewHandlers(svc, slog.Default(), WithAsyncProcessing(false))
	return NewRouter(h, slog.Default(), DefaultConfig())
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestRouter(&fakeService{}), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCreateRun_Success(t *testing.T) {
	svc := &fakeService{}
	rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/runs", CreateRunRequest{
		Script: "The sun rises over the hills.",
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp CreateRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1700000000-abcd1234", resp.ID)
	assert.Equal(t, string(run.StatusIdle), resp.Status)
	assert.Empty(t, resp.Warnings)

	require.Len(t, svc.started, 1)
	assert.Equal(t, "The sun rises over the hills.", svc.started[0].Script)
}

func TestCreateRun_MissingScript(t *testing.T) {
	svc := &fakeService{}
	rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/runs", CreateRunRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Empty(t, svc.started)
}

func TestCreateRun_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	newTestRouter(&fakeService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_JSON", resp.Code)
}

func TestCreateRun_MissingMusicWarns(t *testing.T) {
	svc := &fakeService{}
	rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/runs", CreateRunRequest{
		Script:              "A scene.",
		BackgroundMusicPath: "/nonexistent/music.mp3",
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp CreateRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "voice-only")

	// The run is still created with the path; assembly handles the absence.
	require.Len(t, svc.started, 1)
	assert.Equal(t, "/nonexistent/music.mp3", svc.started[0].MusicPath)
}

func TestCreateRun_ExistingMusicNoWarning(t *testing.T) {
	music := filepath.Join(t.TempDir(), "music.mp3")
	require.NoError(t, os.WriteFile(music, []byte("mp3"), 0600))

	rec := doJSON(t, newTestRouter(&fakeService{}), http.MethodPost, "/runs", CreateRunRequest{
		Script:              "A scene.",
		BackgroundMusicPath: music,
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp CreateRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Warnings)
}

func TestCreateRun_ServiceError(t *testing.T) {
	svc := &fakeService{startErr: errors.New("repository down")}
	rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/runs", CreateRunRequest{Script: "A scene."})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetRun_Success(t *testing.T) {
	r := run.NewWithID("run-1700000000-abcd1234")
	require.NoError(t, r.TransitionTo(run.StatusSegmenting))
	require.NoError(t, r.TransitionTo(run.StatusProcessing))
	r.SetSceneCount(2)
	r.UpdateProgress(47)
	r.AppendAsset(run.SceneAsset{Index: 0, Text: "first", AudioDuration: 3.1})
	r.AppendAsset(run.SceneAsset{
		Index:               1,
		Text:                "second",
		AudioDuration:       2.0,
		AudioFallback:       true,
		AudioFallbackReason: "engine_error",
	})

	rec := doJSON(t, newTestRouter(&fakeService{getRun: r}), http.MethodGet, "/runs/"+r.ID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, r.ID, resp.ID)
	assert.Equal(t, string(run.StatusProcessing), resp.Status)
	assert.Equal(t, 47, resp.Progress)
	assert.Equal(t, 2, resp.SceneCount)
	require.Len(t, resp.Scenes, 2)
	assert.True(t, resp.Scenes[1].AudioFallback)
	assert.Equal(t, "engine_error", resp.Scenes[1].AudioFallbackReason)
	// Artifact fields only appear once completed.
	assert.Empty(t, resp.ArtifactPath)
}

func TestGetRun_CompletedIncludesArtifact(t *testing.T) {
	r := run.NewWithID("run-1700000000-abcd1234")
	for _, s := range []run.Status{run.StatusSegmenting, run.StatusProcessing, run.StatusAssembling, run.StatusCompleted} {
		require.NoError(t, r.TransitionTo(s))
	}
	r.SetArtifact("/data/videos/deoai_x.mp4", "https://bucket.s3.eu-west-1.amazonaws.com/videos/x.mp4")

	rec := doJSON(t, newTestRouter(&fakeService{getRun: r}), http.MethodGet, "/runs/"+r.ID, nil)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/data/videos/deoai_x.mp4", resp.ArtifactPath)
	assert.Contains(t, resp.ArtifactURL, "amazonaws.com")
}

func TestGetRun_NotFound(t *testing.T) {
	svc := &fakeService{getErr: run.ErrRunNotFound}
	rec := doJSON(t, newTestRouter(svc), http.MethodGet, "/runs/run-0-missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "RUN_NOT_FOUND", resp.Code)
}

func TestListRuns(t *testing.T) {
	a := run.NewWithID("run-2-b")
	b := run.NewWithID("run-1-a")
	rec := doJSON(t, newTestRouter(&fakeService{listRuns: []*run.Run{a, b}}), http.MethodGet, "/runs", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp RunListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 2)
	assert.Equal(t, "run-2-b", resp.Runs[0].ID)
	// Scene details are omitted in list responses.
	assert.Empty(t, resp.Runs[0].Scenes)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/runs", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	newTestRouter(&fakeService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
