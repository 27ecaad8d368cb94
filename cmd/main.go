package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/zalun/karaoke-engine/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "kara",
		Usage:    "Karaoke playback engine with queue, prefetch and detachable video window",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
