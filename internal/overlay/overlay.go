// Package overlay derives overlay visibility from the transport position.
//
// Two overlays exist: "next up" appears near the end of the current song to
// warn the upcoming singer, and the current-singer banner shows briefly after
// a song starts. The decision is a pure function of position, duration and
// thresholds; [Watch] layers a transition stream on top of controller events
// for consumers that want edges rather than levels.
package overlay

import (
	"github.com/zalun/karaoke-engine/internal/models"
)

// Config holds the overlay thresholds in seconds.
type Config struct {
	NextUpThreshold float64 // Show "next up" when this close to the end
	SingerThreshold float64 // Show the singer banner this long after the start
}

// State is the visibility of both overlays at one transport position.
type State struct {
	ShowNextUp        bool
	ShowCurrentSinger bool
}

// Decide computes overlay visibility. An unknown duration never shows the
// next-up overlay; it cannot know how close the end is. Thresholds of 0
// disable their overlay.
func Decide(position, duration float64, cfg Config) State {
	var s State
	if cfg.SingerThreshold > 0 && position >= 0 && position < cfg.SingerThreshold {
		s.ShowCurrentSinger = true
	}
	if cfg.NextUpThreshold > 0 && duration > 0 && duration-position <= cfg.NextUpThreshold {
		s.ShowNextUp = true
	}
	return s
}

// Watch consumes controller events and emits overlay states on transitions.
// The config accessor is read per event, so threshold changes from a config
// reload apply immediately. The returned channel closes when events closes.
func Watch(events <-chan models.Event, cfg func() Config) <-chan State {
	out := make(chan State, 1)
	go func() {
		defer close(out)
		var last State
		started := false
		for ev := range events {
			var next State
			switch ev.Type {
			case models.EventProgress, models.EventTrackStarted, models.EventStateChanged:
				if ev.State.CurrentItem != nil {
					next = Decide(ev.State.CurrentTime, ev.State.Duration, cfg())
				}
			case models.EventTrackEnded, models.EventQueueEmpty, models.EventHalted:
				next = State{}
			default:
				continue
			}
			if started && next == last {
				continue
			}
			started = true
			last = next
			out <- next
		}
	}()
	return out
}
