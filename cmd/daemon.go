package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/zalun/karaoke-engine/internal/server"
	"github.com/zalun/karaoke-engine/internal/shared"
	"github.com/zalun/karaoke-engine/internal/ui"
)

// Daemon runs a karaoke session: the playback engine, the config watcher and
// the control API, plus the terminal UI unless --headless is set.
func (r *Runner) Daemon(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	headless := cmd.Bool("headless")
	if !headless {
		// Redirect logs to a file so they don't fight the TUI for the terminal
		fileLogger, err := shared.NewFileLogger("./tmp/kara.log")
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		r.SetLogger(fileLogger)
	}

	ctrl, coord, shutdown := r.engine()
	defer shutdown()

	go ctrl.Run(ctx)
	if err := r.config.Watch(ctx); err != nil {
		r.logger.Warn("config watching disabled", "error", err)
	}

	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(server.NewControlHandler(ctrl, coord, r.queue, r.logger))
	api := server.NewAPI(r.config.Get().Server, router, r.logger)

	if headless {
		r.logger.Info("running headless", "addr", api.Addr())
		return api.Run(ctx)
	}

	apiErr := make(chan error, 1)
	go func() { apiErr <- api.Run(ctx) }()

	model := ui.NewModel(ctx, ctrl, coord, r.queue, r.config)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	stop()
	return <-apiErr
}
