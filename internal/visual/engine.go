// Package visual provides scene image synthesis with a never-fails-openly
// contract: engine problems degrade to placeholder frames instead of errors.
package visual

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// Engine is the black-box image synthesis contract.
type Engine interface {
	Generate(ctx context.Context, prompt string, seed int, outPath string) error
}

const (
	maxAttempts    = 3
	attemptBackoff = 2 * time.Second
)

// HTTPEngine generates images from a prompt-addressed HTTP image service
// (Pollinations-style URLs). Transient failures are retried with a linear
// backoff before giving up.
type HTTPEngine struct {
	baseURL string
	width   int
	height  int
	client  *http.Client
}

// NewHTTPEngine creates an HTTPEngine and returns its capability: an empty
// base URL means the image stage is unavailable and every scene falls back.
func NewHTTPEngine(baseURL string, width, height int) (*HTTPEngine, bool) {
	e := &HTTPEngine{
		baseURL: baseURL,
		width:   width,
		height:  height,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	return e, baseURL != ""
}

// Generate fetches one image for the prompt and writes it to outPath.
// The seed makes per-scene output deterministic across re-runs.
func (e *HTTPEngine) Generate(ctx context.Context, prompt string, seed int, outPath string) error {
	imageURL := fmt.Sprintf(
		"%s/prompt/%s?width=%d&height=%d&nologo=true&model=flux&seed=%d",
		e.baseURL, url.PathEscape(prompt), e.width, e.height, seed,
	)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = e.download(ctx, imageURL, outPath)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("image generation cancelled: %w", ctx.Err())
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("image generation cancelled: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * attemptBackoff):
		}
	}

	return fmt.Errorf("image fetch failed after %d attempts: %w", maxAttempts, lastErr)
}

func (e *HTTPEngine) download(ctx context.Context, imageURL, outPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image service returned status %d", resp.StatusCode)
	}

	f, err := os.Create(outPath) // #nosec G304 - outPath is built from trusted internal code
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(outPath)
		return fmt.Errorf("write image file: %w", err)
	}

	return f.Close()
}
