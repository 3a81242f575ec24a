// Package main provides a CLI for generating a video from a script file
// without running the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/adawatia/deoAI/internal/bootstrap"
	"github.com/adawatia/deoAI/internal/config"
	"github.com/adawatia/deoAI/internal/run"
)

func main() {
	if err := runCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runCLI() error {
	scriptPath := flag.String("script", "", "path to the narration script file (required)")
	musicPath := flag.String("music", "", "optional path to a background music file")
	outDir := flag.String("out-dir", "", "override the asset/output directory")
	pushToS3 := flag.Bool("push-s3", false, "upload the final video to S3")
	flag.Parse()

	if *scriptPath == "" {
		flag.Usage()
		return fmt.Errorf("-script is required")
	}

	scriptData, err := os.ReadFile(*scriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	// Optional .env for local development; the environment wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *outDir != "" {
		cfg.DataDir = *outDir
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	// Ctrl-C cancels the run at the next scene boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := run.NewChannelNotifier(64)
	deps.Pipeline.SetNotifier(notifier)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range notifier.Events() {
			switch e.Kind {
			case run.EventProgress:
				fmt.Printf("\r[%3d%%]", e.Percent)
			case run.EventStatus:
				fmt.Printf("\r[%3d%%] %s\n", e.Percent, e.Message)
			case run.EventError:
				fmt.Printf("\nfailed: %s\n", e.Message)
			case run.EventCompleted:
				fmt.Printf("\n%s\n", e.ArtifactPath)
			}
		}
	}()

	result, err := deps.Pipeline.Generate(ctx, run.StartInput{
		Script:    string(scriptData),
		MusicPath: *musicPath,
		PushToS3:  *pushToS3,
	})
	notifier.Close()
	<-done
	if err != nil {
		return err
	}

	if result.Status == run.StatusFailed {
		return fmt.Errorf("run %s failed: %s", result.ID, result.Error)
	}
	if result.ArtifactURL != "" {
		fmt.Println(result.ArtifactURL)
	}
	return nil
}
