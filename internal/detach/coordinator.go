// Package detach relocates active playback to a secondary OS window and back.
//
// The coordinator treats the secondary window as a remote actor: it drives it
// with [models.RemoteCommand] values and observes [models.RemoteEvent]
// telemetry, while the primary process keeps the single authoritative
// transport state. Commands issued while the window is still initializing are
// queued and flushed, in order, once the window signals readiness, so a
// pause hit right before detach completes is never lost.
//
// Detach is best effort. If window creation fails, the primary window's
// playback resumes untouched. Reattaching restores the last known position
// only above the configured minimum, so a song detached near its start
// simply replays from zero.
package detach

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/playback"
	"github.com/zalun/karaoke-engine/internal/shared"
)

// WindowHandle is a live secondary window.
type WindowHandle interface {
	// SendCommand relays one transport command to the window.
	SendCommand(cmd models.RemoteCommand) error
	// Events returns the window's telemetry stream. The channel closes when
	// the window goes away.
	Events() <-chan models.RemoteEvent
	// Close tears the window down.
	Close() error
}

// WindowHost creates secondary windows. Implemented by the mpv package and
// by test doubles.
type WindowHost interface {
	CreateWindow(ctx context.Context, snap models.DetachSnapshot) (WindowHandle, error)
}

// Coordinator owns the detach/reattach lifecycle for one controller.
type Coordinator struct {
	ctrl   *playback.Controller
	host   WindowHost
	config *shared.ConfigHolder
	logger *log.Logger

	mu      sync.Mutex
	handle  WindowHandle
	session *models.DetachedSessionHandle
	ready   bool
	pending []models.RemoteCommand
}

// NewCoordinator creates a coordinator for ctrl using host to spawn windows.
func NewCoordinator(ctrl *playback.Controller, host WindowHost, config *shared.ConfigHolder, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if config == nil {
		config = shared.NewConfigHolder(shared.DefaultConfig(), "", logger)
	}
	return &Coordinator{
		ctrl:   ctrl,
		host:   host,
		config: config,
		logger: shared.WithLogger(logger, "component", "detach"),
	}
}

// Detached reports whether a detached session is live.
func (c *Coordinator) Detached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}

// Session returns a copy of the live session handle, or nil.
func (c *Coordinator) Session() *models.DetachedSessionHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Detach relocates the active playback into a new secondary window.
func (c *Coordinator) Detach(ctx context.Context) (*models.DetachedSessionHandle, error) {
	c.mu.Lock()
	if c.handle != nil {
		c.mu.Unlock()
		return nil, shared.ErrDetachUnavailable
	}
	c.mu.Unlock()

	snap, err := c.ctrl.PrepareDetach()
	if err != nil {
		return nil, err
	}

	handle, err := c.host.CreateWindow(ctx, snap)
	if err != nil {
		// Best effort: the primary playback comes back untouched.
		c.ctrl.AbortDetach(snap)
		return nil, fmt.Errorf("%w: %v", shared.ErrDetachFailed, err)
	}

	session := &models.DetachedSessionHandle{
		WindowID:          shared.GenerateID(),
		LastKnownPosition: snap.Position,
	}

	c.mu.Lock()
	c.handle = handle
	c.session = session
	c.ready = false
	c.pending = nil
	c.mu.Unlock()

	c.ctrl.CommitDetach(c.RelayCommand)
	go c.pump(handle)

	c.logger.Info("playback detached", "window", session.WindowID, "position", snap.Position)
	s := *session
	return &s, nil
}

// RelayCommand forwards a transport command to the detached window. Commands
// sent before the window signals readiness are queued and flushed in order.
func (c *Coordinator) RelayCommand(cmd models.RemoteCommand) error {
	c.mu.Lock()
	handle := c.handle
	if handle == nil {
		c.mu.Unlock()
		return shared.ErrNotDetached
	}
	if !c.ready {
		c.pending = append(c.pending, cmd)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return handle.SendCommand(cmd)
}

// Reattach explicitly ends the detached session and restores playback into
// the primary window, honoring the minimum-restore threshold.
func (c *Coordinator) Reattach() error {
	handle, session := c.take()
	if handle == nil {
		return shared.ErrNotDetached
	}
	if err := handle.Close(); err != nil {
		c.logger.Warn("closing secondary window failed", "error", err)
	}

	minRestore := c.config.Get().Playback.MinRestoreSecs
	c.logger.Info("reattaching playback", "window", session.WindowID, "position", session.LastKnownPosition)
	return c.ctrl.CompleteReattach(session.LastKnownPosition, session.LastKnownDuration, minRestore)
}

// take claims the live handle/session pair, leaving the coordinator idle.
// Returns nils when no session is live (or another path claimed it first).
func (c *Coordinator) take() (WindowHandle, *models.DetachedSessionHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	handle, session := c.handle, c.session
	c.handle = nil
	c.session = nil
	c.ready = false
	c.pending = nil
	return handle, session
}

// pump consumes one window's telemetry until the window goes away. It acts
// only while its handle is still the live one; an explicit reattach that
// races the window closing wins.
func (c *Coordinator) pump(handle WindowHandle) {
	for ev := range handle.Events() {
		if !c.owns(handle) {
			return
		}
		switch ev.Kind {
		case models.RemoteReady:
			c.flushPending(handle)

		case models.RemoteTime:
			c.mu.Lock()
			if c.session != nil {
				c.session.LastKnownPosition = ev.Value
			}
			c.mu.Unlock()
			c.ctrl.ApplyRemote(ev)

		case models.RemoteDuration:
			c.mu.Lock()
			if c.session != nil {
				c.session.LastKnownDuration = ev.Value
			}
			c.mu.Unlock()
			c.ctrl.ApplyRemote(ev)

		case models.RemoteEnded:
			// Natural end while detached: end the session, then advance in
			// queue order; the next item plays in the primary window.
			if h, _ := c.take(); h != nil {
				_ = h.Close()
				c.ctrl.EndDetachedSession()
				if err := c.ctrl.AdvanceOnEnded(); err != nil {
					c.logger.Error("advance after detached end failed", "error", err)
				}
			}
			return

		case models.RemoteFault:
			if h, _ := c.take(); h != nil {
				_ = h.Close()
				c.ctrl.EndDetachedSession()
				if ev.Fault != nil {
					c.ctrl.ReportError(*ev.Fault)
				}
			}
			return

		case models.RemoteClosed:
			c.implicitReattach(handle)
			return
		}
	}
	// Channel closed without a closed event: the window died.
	c.implicitReattach(handle)
}

func (c *Coordinator) owns(handle WindowHandle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle == handle
}

func (c *Coordinator) flushPending(handle WindowHandle) {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.ready = true
	c.mu.Unlock()

	for _, cmd := range pending {
		if err := handle.SendCommand(cmd); err != nil {
			c.logger.Warn("flushing queued command failed", "kind", cmd.Kind, "error", err)
		}
	}
}

// implicitReattach handles the user closing the secondary window directly.
func (c *Coordinator) implicitReattach(handle WindowHandle) {
	c.mu.Lock()
	if c.handle != handle {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if h, session := c.take(); h != nil {
		_ = h.Close()
		minRestore := c.config.Get().Playback.MinRestoreSecs
		c.logger.Info("secondary window closed, reattaching", "position", session.LastKnownPosition)
		if err := c.ctrl.CompleteReattach(session.LastKnownPosition, session.LastKnownDuration, minRestore); err != nil {
			c.logger.Error("implicit reattach failed", "error", err)
		}
	}
}
