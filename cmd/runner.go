package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/zalun/karaoke-engine/internal/detach"
	"github.com/zalun/karaoke-engine/internal/mpv"
	"github.com/zalun/karaoke-engine/internal/playback"
	"github.com/zalun/karaoke-engine/internal/queue"
	"github.com/zalun/karaoke-engine/internal/services"
	"github.com/zalun/karaoke-engine/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.ConfigHolder
	configPath string
	resolver   services.Resolver
	queue      *queue.List
	backend    playback.MediaBackend
	windowHost detach.WindowHost
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner. Nil fields
// get working defaults; tests inject fakes through the same struct.
type RunnerOpts struct {
	Config     *shared.ConfigHolder
	ConfigPath string
	Resolver   services.Resolver
	Queue      *queue.List
	Backend    playback.MediaBackend
	WindowHost detach.WindowHost
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Config == nil {
		opts.Config = shared.NewConfigHolder(shared.DefaultConfig(), opts.ConfigPath, opts.Logger)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Queue == nil {
		opts.Queue = queue.NewList()
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		resolver:   opts.Resolver,
		queue:      opts.Queue,
		backend:    opts.Backend,
		windowHost: opts.WindowHost,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the runner's logger, e.g. onto a file before the TUI starts.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		configCommand, resolveCommand, playCommand, daemonCommand, exportCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig replaces the runner's configuration with the file at path when it
// exists. A missing file keeps the embedded defaults.
func (r *Runner) loadConfig(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("no config file, using defaults", "path", path)
		return nil
	}
	cfg, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = shared.NewConfigHolder(cfg, path, r.logger)
	r.configPath = path
	return nil
}

// streamResolver returns the injected resolver or builds one from the current
// configuration.
func (r *Runner) streamResolver() services.Resolver {
	if r.resolver != nil {
		return r.resolver
	}
	cfg := r.config.Get().Resolver
	r.resolver = services.NewStreamResolver(services.StreamResolverOpts{
		BaseURL:   cfg.BaseURL,
		RateLimit: cfg.RateLimit,
		Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
	})
	return r.resolver
}

// engine wires the playback stack around the current configuration. The
// returned shutdown function releases the media backend.
func (r *Runner) engine() (*playback.Controller, *detach.Coordinator, func()) {
	backend := r.backend
	shutdown := func() {}
	if backend == nil {
		b := mpv.NewBackend(r.config.Get().MPV, r.logger)
		backend = b
		shutdown = b.Shutdown
	}

	host := r.windowHost
	if host == nil {
		host = mpv.NewHost(r.config.Get().MPV, r.logger)
	}

	ctrl := playback.NewController(playback.ControllerOpts{
		Backend:  backend,
		Resolver: r.streamResolver(),
		Queue:    r.queue,
		Config:   r.config,
		Logger:   r.logger,
	})
	coord := detach.NewCoordinator(ctrl, host, r.config, r.logger)
	return ctrl, coord, shutdown
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
