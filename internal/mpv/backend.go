package mpv

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/playback"
	"github.com/zalun/karaoke-engine/internal/shared"
)

// Backend drives the primary window's mpv process. It implements
// [playback.MediaBackend]: one long-lived idle mpv, sources swapped in and
// out with loadfile/stop.
type Backend struct {
	binary    string
	extraArgs []string
	logger    *log.Logger

	mu    sync.Mutex
	proc  *process
	ready bool // current source reached file-loaded

	events chan playback.BackendEvent
}

// NewBackend creates a backend using the configured mpv binary. The process
// is spawned lazily on the first load.
func NewBackend(cfg shared.MPVConfig, logger *log.Logger) *Backend {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Backend{
		binary:    cfg.Binary,
		extraArgs: cfg.ExtraArgs,
		logger:    shared.WithLogger(logger, "component", "mpv"),
		events:    make(chan playback.BackendEvent, 64),
	}
}

// Events returns the backend telemetry stream.
func (b *Backend) Events() <-chan playback.BackendEvent {
	return b.events
}

// Load swaps the given source into the player, paused. Readiness is
// reported as a [playback.BackendReady] event once mpv loaded the file.
func (b *Backend) Load(ctx context.Context, src playback.Source) error {
	proc, err := b.ensureProcess()
	if err != nil {
		return err
	}

	location := src.Location
	if src.Kind == playback.SourceEmbed {
		// Provider-hosted media: mpv's ytdl hook does the extraction, no
		// raw URL ever reaches this process.
		location = "https://www.youtube.com/watch?v=" + src.MediaID
	}

	b.mu.Lock()
	b.ready = false
	b.mu.Unlock()

	if err := proc.setProperty("pause", true); err != nil {
		return err
	}
	if _, err := proc.command("loadfile", location, "replace"); err != nil {
		return err
	}
	return nil
}

func (b *Backend) Play() error {
	return b.set("pause", false)
}

func (b *Backend) Pause() error {
	return b.set("pause", true)
}

func (b *Backend) SeekTo(seconds float64) error {
	b.mu.Lock()
	proc := b.proc
	b.mu.Unlock()
	if proc == nil {
		return shared.ErrNotReady
	}
	_, err := proc.command("seek", seconds, "absolute")
	return err
}

func (b *Backend) SetVolume(v float64) error {
	return b.set("volume", v*100)
}

func (b *Backend) SetMuted(muted bool) error {
	return b.set("mute", muted)
}

// Unload stops playback and releases the current source. The idle process
// stays up for the next load.
func (b *Backend) Unload() error {
	b.mu.Lock()
	proc := b.proc
	b.ready = false
	b.mu.Unlock()
	if proc == nil {
		return nil
	}
	_, err := proc.command("stop")
	return err
}

// Shutdown kills the mpv process. The events channel stays open; a new load
// respawns.
func (b *Backend) Shutdown() {
	b.mu.Lock()
	proc := b.proc
	b.proc = nil
	b.mu.Unlock()
	if proc != nil {
		_ = proc.stop()
	}
}

func (b *Backend) set(name string, value any) error {
	b.mu.Lock()
	proc := b.proc
	b.mu.Unlock()
	if proc == nil {
		return shared.ErrNotReady
	}
	return proc.setProperty(name, value)
}

func (b *Backend) ensureProcess() (*process, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.proc != nil {
		return b.proc, nil
	}

	proc, err := spawn(b.binary, b.extraArgs, b.logger)
	if err != nil {
		return nil, err
	}
	for id, name := range []string{"time-pos", "duration"} {
		if err := proc.observe(id+1, name); err != nil {
			_ = proc.stop()
			return nil, err
		}
	}
	b.proc = proc
	go b.translate(proc)
	return proc, nil
}

// translate maps raw mpv events onto backend telemetry.
func (b *Backend) translate(proc *process) {
	for msg := range proc.events {
		switch msg.Event {
		case "file-loaded":
			b.mu.Lock()
			b.ready = true
			b.mu.Unlock()
			b.send(playback.BackendEvent{Kind: playback.BackendReady})

		case "property-change":
			if v, ok := floatData(msg.Data); ok {
				switch msg.Name {
				case "time-pos":
					b.send(playback.BackendEvent{Kind: playback.BackendTime, Value: v})
				case "duration":
					b.send(playback.BackendEvent{Kind: playback.BackendDuration, Value: v})
				}
			}

		case "end-file":
			switch msg.Reason {
			case "eof":
				b.send(playback.BackendEvent{Kind: playback.BackendEnded})
			case "error":
				b.mu.Lock()
				wasReady := b.ready
				b.ready = false
				b.mu.Unlock()
				fault := classifyFileError(msg.FileError, wasReady)
				b.send(playback.BackendEvent{Kind: playback.BackendFault, Fault: &fault})
			}
		}
	}
	b.logger.Debug("mpv process ended")
}

func (b *Backend) send(ev playback.BackendEvent) {
	select {
	case b.events <- ev:
	default:
		b.logger.Warn("dropping backend event, consumer stalled", "kind", ev.Kind)
	}
}

// classifyFileError maps mpv's end-file error string onto a fault signal.
// The mapping is heuristic; mpv does not report structured causes.
func classifyFileError(detail string, wasReady bool) models.FaultSignal {
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "unsupported") || strings.Contains(lower, "unrecognized"):
		return models.FaultSignal{Code: models.FaultUnsupported, Detail: detail}
	case strings.Contains(lower, "embed") || strings.Contains(lower, "not allowed") || strings.Contains(lower, "age-restricted"):
		return models.FaultSignal{Code: models.FaultEmbedBlocked, Detail: detail}
	case wasReady:
		return models.FaultSignal{Code: models.FaultDecode, Detail: detail}
	default:
		return models.FaultSignal{Code: models.FaultLoad, Detail: detail}
	}
}

func floatData(raw json.RawMessage) (float64, bool) {
	var v float64
	if raw == nil || json.Unmarshal(raw, &v) != nil {
		return 0, false
	}
	return v, true
}

var _ playback.MediaBackend = (*Backend)(nil)
