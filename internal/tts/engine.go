// Package tts provides text-to-speech synthesis with a never-fails-openly
// contract: engine problems degrade to silence fallbacks instead of errors.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Engine is the black-box synthesis contract. Implementations convert text
// to an audio file at outPath and may fail; the Synthesizer absorbs that.
type Engine interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

// CommandEngine synthesizes speech by invoking an external TTS CLI.
// Three argument shapes are supported: edge-tts, a python script, and a
// generic binary accepting --text/--output.
type CommandEngine struct {
	bin   string
	voice string
}

// NewCommandEngine creates a CommandEngine and probes whether the binary is
// callable. The returned capability flag is the explicit availability result
// the orchestrator holds; there is no package-level availability state.
func NewCommandEngine(bin, voice string) (*CommandEngine, bool) {
	e := &CommandEngine{bin: bin, voice: voice}
	if bin == "" {
		return e, false
	}
	if strings.HasSuffix(bin, ".py") {
		_, err := exec.LookPath("python3")
		return e, err == nil
	}
	if _, err := exec.LookPath(bin); err != nil {
		return e, false
	}
	return e, true
}

// Synthesize runs the TTS CLI for one piece of text.
func (e *CommandEngine) Synthesize(ctx context.Context, text, outPath string) error {
	var cmd *exec.Cmd

	switch {
	case filepath.Base(e.bin) == "edge-tts":
		cmd = exec.CommandContext(ctx, e.bin,
			"--voice", e.voice,
			"--text", text,
			"--write-media", outPath,
		)
	case strings.HasSuffix(e.bin, ".py"):
		cmd = exec.CommandContext(ctx, "python3", e.bin,
			"--text", text,
			"--output", outPath,
		)
	default:
		// #nosec G204 - bin is set by the application, not user input
		cmd = exec.CommandContext(ctx, e.bin,
			"--text", text,
			"--output", outPath,
		)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("tts cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("tts command %q: %w, stderr: %s", e.bin, err, stderr.String())
	}
	return nil
}
