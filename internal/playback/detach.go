package playback

import (
	"fmt"

	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/shared"
)

// Detach support. The detach/reattach coordinator drives these entry points;
// they exist so the coordinator can hand playback to a secondary window
// without ever becoming a second writer of the transport state.

// PrepareDetach validates that the transport can detach and pauses the
// primary backend while keeping it loaded, so a failed window creation can
// resume exactly where it was. The returned snapshot is what the secondary
// window starts from.
func (c *Controller) PrepareDetach() (models.DetachSnapshot, error) {
	c.mu.Lock()
	if c.state.IsDetached {
		c.mu.Unlock()
		return models.DetachSnapshot{}, shared.ErrDetachUnavailable
	}
	if c.state.CurrentItem == nil {
		c.mu.Unlock()
		return models.DetachSnapshot{}, shared.ErrNothingPlaying
	}
	if c.state.IsLoading {
		c.mu.Unlock()
		return models.DetachSnapshot{}, fmt.Errorf("%w: load in progress", shared.ErrDetachUnavailable)
	}

	snap := models.DetachSnapshot{
		Source:    c.activeSrc.openableLocation(),
		Title:     c.state.CurrentItem.Title,
		IsPlaying: c.state.IsPlaying,
		Position:  c.state.CurrentTime,
		Volume:    c.state.Volume,
		IsMuted:   c.state.IsMuted,
	}
	c.mu.Unlock()

	if snap.IsPlaying {
		if err := c.backend.Pause(); err != nil {
			return models.DetachSnapshot{}, fmt.Errorf("%w: pausing primary backend: %v", shared.ErrDetachFailed, err)
		}
	}
	return snap, nil
}

// CommitDetach completes the handoff: the primary backend releases the media
// handle and transport commands start flowing through relay. Only the
// coordinator calls this, after the secondary window exists.
func (c *Controller) CommitDetach(relay func(models.RemoteCommand) error) {
	c.mu.Lock()
	c.state.IsDetached = true
	c.relay = relay
	item := c.state.CurrentItem
	c.mu.Unlock()

	if err := c.backend.Unload(); err != nil {
		c.logger.Warn("primary backend unload failed during detach", "error", err)
	}
	c.emit(models.Event{Type: models.EventDetached, Item: item})
}

// AbortDetach undoes PrepareDetach after a failed window creation. Detach is
// best effort: the in-progress playback must come back untouched.
func (c *Controller) AbortDetach(snap models.DetachSnapshot) {
	if snap.IsPlaying {
		if err := c.backend.Play(); err != nil {
			c.logger.Warn("resume after failed detach failed", "error", err)
		}
	}
	c.emit(models.Event{Type: models.EventStateChanged})
}

// ApplyRemote folds telemetry from the detached window into the shared
// transport state, keeping overlays and media-key integrations consistent
// regardless of which window renders video. Ended/closed/fault events are
// the coordinator's to handle; only transport telemetry lands here.
func (c *Controller) ApplyRemote(ev models.RemoteEvent) {
	c.mu.Lock()
	if !c.state.IsDetached {
		c.mu.Unlock()
		return
	}
	switch ev.Kind {
	case models.RemoteTime:
		c.state.CurrentTime = ev.Value
		c.mu.Unlock()
		c.emit(models.Event{Type: models.EventProgress})
		c.maybePrefetchNext()
	case models.RemoteDuration:
		c.state.Duration = ev.Value
		c.mu.Unlock()
		c.emit(models.Event{Type: models.EventProgress})
	default:
		c.mu.Unlock()
	}
}

// EndDetachedSession clears the detached flag without restoring anything
// into the primary backend. Used when the detached window finished its item
// naturally: the coordinator ends the session first, then advances the
// queue, which loads the next item into the primary backend as usual.
func (c *Controller) EndDetachedSession() {
	c.mu.Lock()
	if !c.state.IsDetached {
		c.mu.Unlock()
		return
	}
	c.state.IsDetached = false
	c.relay = nil
	c.state.IsPlaying = false
	c.mu.Unlock()
	c.emit(models.Event{Type: models.EventReattached})
}

// CompleteReattach restores playback into the primary backend. The last
// known position is restored only above minRestore; near-start positions
// replay from zero instead of fighting a backend that already starts there.
func (c *Controller) CompleteReattach(lastPos, lastDur, minRestore float64) error {
	c.mu.Lock()
	if !c.state.IsDetached {
		c.mu.Unlock()
		return shared.ErrNotDetached
	}
	c.state.IsDetached = false
	c.relay = nil

	if c.state.CurrentItem == nil {
		// The remote session ended with nothing to restore.
		c.mu.Unlock()
		c.emit(models.Event{Type: models.EventReattached})
		return nil
	}

	c.loadGen++
	c.loading = c.state.CurrentItem.ID
	c.state.IsLoading = true
	c.autoplay = c.state.IsPlaying
	c.state.IsPlaying = false
	if lastDur > 0 {
		c.state.Duration = lastDur
	}
	if lastPos > minRestore {
		pos := lastPos
		c.state.PendingSeek = &pos
		c.state.CurrentTime = pos
	} else {
		c.state.PendingSeek = nil
		c.state.CurrentTime = 0
	}
	src := c.activeSrc
	item := *c.state.CurrentItem
	gen := c.loadGen
	ctx := c.runCtx
	c.mu.Unlock()

	c.emit(models.Event{Type: models.EventReattached, Item: &item})

	if err := c.backend.Load(ctx, src); err != nil {
		err = fmt.Errorf("restoring primary playback: %w", err)
		c.failLoad(item, gen, err)
		return err
	}
	return nil
}

// openableLocation returns something a media window can open directly.
func (s Source) openableLocation() string {
	if s.Kind == SourceEmbed {
		return "https://www.youtube.com/watch?v=" + s.MediaID
	}
	return s.Location
}
