package mpv

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/zalun/karaoke-engine/internal/detach"
	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/shared"
)

// Host spawns detached fullscreen mpv windows. It implements
// [detach.WindowHost]; every CreateWindow call gets its own process.
type Host struct {
	binary    string
	extraArgs []string
	logger    *log.Logger
}

// NewHost creates a window host using the configured mpv binary.
func NewHost(cfg shared.MPVConfig, logger *log.Logger) *Host {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Host{
		binary:    cfg.Binary,
		extraArgs: cfg.ExtraArgs,
		logger:    shared.WithLogger(logger, "component", "mpv-window"),
	}
}

// CreateWindow spawns a fullscreen window playing the snapshot's source from
// its captured position, volume and mute state.
func (h *Host) CreateWindow(ctx context.Context, snap models.DetachSnapshot) (detach.WindowHandle, error) {
	args := []string{
		"--fs",
		"--force-window=yes",
		"--title=" + snap.Title,
	}
	args = append(args, h.extraArgs...)

	proc, err := spawn(h.binary, args, h.logger)
	if err != nil {
		return nil, err
	}

	w := &window{
		proc:   proc,
		logger: h.logger,
		events: make(chan models.RemoteEvent, 64),
	}
	if err := w.start(snap); err != nil {
		_ = proc.stop()
		return nil, err
	}
	go w.translate()
	return w, nil
}

// window is one live detached mpv process.
type window struct {
	proc   *process
	logger *log.Logger
	events chan models.RemoteEvent
}

func (w *window) start(snap models.DetachSnapshot) error {
	for id, name := range []string{"time-pos", "duration"} {
		if err := w.proc.observe(id+1, name); err != nil {
			return err
		}
	}
	if err := w.proc.setProperty("volume", snap.Volume*100); err != nil {
		return err
	}
	if err := w.proc.setProperty("mute", snap.IsMuted); err != nil {
		return err
	}
	if err := w.proc.setProperty("pause", !snap.IsPlaying); err != nil {
		return err
	}

	opts := ""
	if snap.Position > 0 {
		opts = fmt.Sprintf("start=%.3f", snap.Position)
	}
	if _, err := w.proc.command("loadfile", snap.Source, "replace", opts); err != nil {
		return err
	}
	return nil
}

func (w *window) SendCommand(cmd models.RemoteCommand) error {
	switch cmd.Kind {
	case models.CmdPlay:
		return w.proc.setProperty("pause", false)
	case models.CmdPause:
		return w.proc.setProperty("pause", true)
	case models.CmdSeek:
		_, err := w.proc.command("seek", cmd.Value, "absolute")
		return err
	case models.CmdVolume:
		return w.proc.setProperty("volume", cmd.Value*100)
	case models.CmdMute:
		return w.proc.setProperty("mute", cmd.Flag)
	default:
		return fmt.Errorf("unknown remote command %q", cmd.Kind)
	}
}

func (w *window) Events() <-chan models.RemoteEvent {
	return w.events
}

func (w *window) Close() error {
	return w.proc.stop()
}

// translate maps raw mpv events onto the remote telemetry stream. The stream
// closes when the process goes away, which the coordinator treats as an
// implicit reattach unless a terminal event arrived first.
func (w *window) translate() {
	defer close(w.events)
	for msg := range w.proc.events {
		switch msg.Event {
		case "file-loaded":
			w.send(models.RemoteEvent{Kind: models.RemoteReady})

		case "property-change":
			if v, ok := floatData(msg.Data); ok {
				switch msg.Name {
				case "time-pos":
					w.send(models.RemoteEvent{Kind: models.RemoteTime, Value: v})
				case "duration":
					w.send(models.RemoteEvent{Kind: models.RemoteDuration, Value: v})
				}
			}

		case "end-file":
			switch msg.Reason {
			case "eof":
				w.send(models.RemoteEvent{Kind: models.RemoteEnded})
				return
			case "error":
				fault := classifyFileError(msg.FileError, true)
				w.send(models.RemoteEvent{Kind: models.RemoteFault, Fault: &fault})
				return
			case "quit", "stop":
				w.send(models.RemoteEvent{Kind: models.RemoteClosed})
				return
			}
		}
	}
	w.send(models.RemoteEvent{Kind: models.RemoteClosed})
}

func (w *window) send(ev models.RemoteEvent) {
	select {
	case w.events <- ev:
	default:
		w.logger.Warn("dropping remote event, consumer stalled", "kind", ev.Kind)
	}
}

var _ detach.WindowHost = (*Host)(nil)
