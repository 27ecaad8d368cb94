package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/queue"
	"github.com/zalun/karaoke-engine/internal/services"
	"github.com/zalun/karaoke-engine/internal/shared"
)

// fakeBackend records every call so tests can assert on the exact command
// sequence the controller issued.
type fakeBackend struct {
	mu      sync.Mutex
	loads   []Source
	plays   int
	pauses  int
	seeks   []float64
	volumes []float64
	mutes   []bool
	unloads int
	loadErr error

	events chan BackendEvent
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{events: make(chan BackendEvent, 16)}
}

func (b *fakeBackend) Load(_ context.Context, src Source) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return b.loadErr
	}
	b.loads = append(b.loads, src)
	return nil
}

func (b *fakeBackend) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plays++
	return nil
}

func (b *fakeBackend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pauses++
	return nil
}

func (b *fakeBackend) SeekTo(seconds float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seeks = append(b.seeks, seconds)
	return nil
}

func (b *fakeBackend) SetVolume(v float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volumes = append(b.volumes, v)
	return nil
}

func (b *fakeBackend) SetMuted(muted bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mutes = append(b.mutes, muted)
	return nil
}

func (b *fakeBackend) Unload() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unloads++
	return nil
}

func (b *fakeBackend) Events() <-chan BackendEvent {
	return b.events
}

func (b *fakeBackend) loadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.loads)
}

func (b *fakeBackend) lastLoad() Source {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.loads) == 0 {
		return Source{}
	}
	return b.loads[len(b.loads)-1]
}

func (b *fakeBackend) playCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.plays
}

// scriptedResolver serves canned URLs and can block mid-call so tests can
// interleave other operations with an in-flight resolve.
type scriptedResolver struct {
	mu    sync.Mutex
	calls []string
	urls  map[string]string
	errs  map[string]error

	gate    chan struct{} // non-nil: Resolve blocks here until closed
	started chan string   // non-nil: receives the media id as each call begins
}

func (r *scriptedResolver) Resolve(_ context.Context, mediaID string) (*services.ResolvedStream, error) {
	r.mu.Lock()
	r.calls = append(r.calls, mediaID)
	gate := r.gate
	started := r.started
	url, ok := r.urls[mediaID]
	err := r.errs[mediaID]
	r.mu.Unlock()

	if started != nil {
		started <- mediaID
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		url = "https://cdn.example.com/stream/" + mediaID
	}
	return &services.ResolvedStream{URL: url, ExpiresIn: 21600}, nil
}

func (r *scriptedResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func testConfig(mode shared.PlaybackMode, mut func(*shared.Config)) *shared.ConfigHolder {
	cfg := shared.DefaultConfig()
	cfg.Playback.Mode = mode
	if mut != nil {
		mut(cfg)
	}
	return shared.NewConfigHolder(cfg, "", nil)
}

func newTestController(mode shared.PlaybackMode) (*Controller, *fakeBackend, *scriptedResolver, *queue.List) {
	backend := newFakeBackend()
	resolver := &scriptedResolver{}
	q := queue.NewList()
	c := NewController(ControllerOpts{
		Backend:  backend,
		Resolver: resolver,
		Queue:    q,
		Config:   testConfig(mode, nil),
	})
	return c, backend, resolver, q
}

func ytItem(id string) models.PlaybackItem {
	return models.PlaybackItem{ID: id, Title: "song " + id, Origin: models.OriginYouTube, MediaRef: "vid-" + id, DurationHint: 180}
}

func localItem(id string) models.PlaybackItem {
	return models.PlaybackItem{ID: id, Title: "song " + id, Origin: models.OriginLocal, MediaRef: "/media/" + id + ".mp4"}
}

func externalItem(id string) models.PlaybackItem {
	return models.PlaybackItem{ID: id, Title: "song " + id, Origin: models.OriginExternal, MediaRef: "https://media.example.com/" + id + ".mp4"}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// drainEvents empties a subscriber channel without blocking.
func drainEvents(ch <-chan models.Event) []models.Event {
	var out []models.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func hasEvent(events []models.Event, typ models.EventType) bool {
	for _, ev := range events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}
