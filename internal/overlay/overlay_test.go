package overlay

import (
	"testing"
	"time"

	"github.com/zalun/karaoke-engine/internal/models"
)

func TestDecide(t *testing.T) {
	cfg := Config{NextUpThreshold: 30, SingerThreshold: 10}

	tests := []struct {
		name     string
		position float64
		duration float64
		cfg      Config
		want     State
	}{
		{"start of song shows the singer banner", 0, 180, cfg, State{ShowCurrentSinger: true}},
		{"banner still up just before the threshold", 9.9, 180, cfg, State{ShowCurrentSinger: true}},
		{"banner gone at the threshold", 10, 180, cfg, State{}},
		{"mid song shows nothing", 90, 180, cfg, State{}},
		{"near the end shows next up", 155, 180, cfg, State{ShowNextUp: true}},
		{"exactly at the next-up boundary", 150, 180, cfg, State{ShowNextUp: true}},
		{"unknown duration never shows next up", 155, 0, cfg, State{}},
		{"short clip shows both at the start", 5, 20, cfg, State{ShowNextUp: true, ShowCurrentSinger: true}},
		{"zero thresholds disable both", 0, 180, Config{}, State{}},
		{"disabled next up keeps the singer banner", 2, 180, Config{SingerThreshold: 10}, State{ShowCurrentSinger: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.position, tt.duration, tt.cfg); got != tt.want {
				t.Errorf("Decide(%v, %v) = %+v, want %+v", tt.position, tt.duration, got, tt.want)
			}
		})
	}
}

func TestWatch(t *testing.T) {
	cfg := func() Config { return Config{NextUpThreshold: 30, SingerThreshold: 10} }

	progress := func(pos, dur float64) models.Event {
		item := models.PlaybackItem{ID: "a", MediaRef: "vid-a"}
		return models.Event{
			Type:  models.EventProgress,
			State: models.TransportState{CurrentItem: &item, CurrentTime: pos, Duration: dur},
		}
	}

	recv := func(t *testing.T, ch <-chan State) State {
		t.Helper()
		select {
		case s, ok := <-ch:
			if !ok {
				t.Fatal("state channel closed early")
			}
			return s
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for an overlay state")
			return State{}
		}
	}

	t.Run("emits only on transitions", func(t *testing.T) {
		events := make(chan models.Event, 8)
		out := Watch(events, cfg)

		events <- progress(0, 180)
		if got := recv(t, out); !got.ShowCurrentSinger {
			t.Fatalf("expected the singer banner, got %+v", got)
		}

		// Same visibility again: no emission, the next read sees the
		// banner-down transition instead.
		events <- progress(5, 180)
		events <- progress(60, 180)
		if got := recv(t, out); got != (State{}) {
			t.Fatalf("expected both overlays down, got %+v", got)
		}

		events <- progress(170, 180)
		if got := recv(t, out); !got.ShowNextUp {
			t.Fatalf("expected the next-up overlay, got %+v", got)
		}

		close(events)
		if _, ok := <-out; ok {
			t.Error("state channel should close with the event stream")
		}
	})

	t.Run("track end clears the overlays", func(t *testing.T) {
		events := make(chan models.Event, 8)
		out := Watch(events, cfg)

		events <- progress(170, 180)
		if got := recv(t, out); !got.ShowNextUp {
			t.Fatalf("expected the next-up overlay, got %+v", got)
		}

		events <- models.Event{Type: models.EventTrackEnded}
		if got := recv(t, out); got != (State{}) {
			t.Fatalf("expected cleared overlays, got %+v", got)
		}
		close(events)
	})

	t.Run("ignores unrelated events", func(t *testing.T) {
		events := make(chan models.Event, 8)
		out := Watch(events, cfg)

		events <- models.Event{Type: models.EventDetached}
		events <- progress(0, 180)
		if got := recv(t, out); !got.ShowCurrentSinger {
			t.Fatalf("expected the first emission from progress, got %+v", got)
		}
		close(events)
	})
}
