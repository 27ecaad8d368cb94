package playback

import (
	"context"
	"sync"
	"testing"

	"github.com/zalun/karaoke-engine/internal/models"
)

// headStub is a swappable queue-head accessor.
type headStub struct {
	mu   sync.Mutex
	item *models.PlaybackItem
}

func (h *headStub) get() *models.PlaybackItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.item
}

func (h *headStub) set(item *models.PlaybackItem) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.item = item
}

func TestPrefetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("threshold zero disables prefetch", func(t *testing.T) {
		resolver := &scriptedResolver{}
		next := ytItem("a")
		head := &headStub{item: &next}
		p := NewPrefetcher(resolver, head.get, nil)

		p.MaybePrefetch(ctx, next, 5, 180, 0)
		if resolver.callCount() != 0 {
			t.Errorf("expected no resolver calls, got %d", resolver.callCount())
		}
	})

	t.Run("unknown duration never triggers", func(t *testing.T) {
		resolver := &scriptedResolver{}
		next := ytItem("a")
		head := &headStub{item: &next}
		p := NewPrefetcher(resolver, head.get, nil)

		p.MaybePrefetch(ctx, next, 5, 0, 20)
		if resolver.callCount() != 0 {
			t.Errorf("expected no resolver calls, got %d", resolver.callCount())
		}
	})

	t.Run("far from the end does not trigger", func(t *testing.T) {
		resolver := &scriptedResolver{}
		next := ytItem("a")
		head := &headStub{item: &next}
		p := NewPrefetcher(resolver, head.get, nil)

		p.MaybePrefetch(ctx, next, 100, 180, 20)
		if resolver.callCount() != 0 {
			t.Errorf("expected no resolver calls, got %d", resolver.callCount())
		}
	})

	t.Run("triggers near the end and fills the slot", func(t *testing.T) {
		resolver := &scriptedResolver{urls: map[string]string{"vid-a": "https://cdn.example.com/a"}}
		next := ytItem("a")
		head := &headStub{item: &next}
		p := NewPrefetcher(resolver, head.get, nil)

		p.MaybePrefetch(ctx, next, 15, 180, 20)
		eventually(t, func() bool { return p.Cached() == "a" }, "slot never filled")

		url, ok := p.Consume("a")
		if !ok || url != "https://cdn.example.com/a" {
			t.Fatalf("Consume() = %q, %v", url, ok)
		}
		if _, ok := p.Consume("a"); ok {
			t.Error("second consume should miss, slot is single-use")
		}
	})

	t.Run("short clip triggers regardless of position", func(t *testing.T) {
		resolver := &scriptedResolver{}
		next := ytItem("a")
		head := &headStub{item: &next}
		p := NewPrefetcher(resolver, head.get, nil)

		// Whole clip shorter than the threshold: fires right after load.
		p.MaybePrefetch(ctx, next, 15, 15, 20)
		eventually(t, func() bool { return p.Cached() == "a" }, "slot never filled for short clip")
	})

	t.Run("consume for a different item misses", func(t *testing.T) {
		resolver := &scriptedResolver{}
		next := ytItem("a")
		head := &headStub{item: &next}
		p := NewPrefetcher(resolver, head.get, nil)

		p.MaybePrefetch(ctx, next, 10, 180, 20)
		eventually(t, func() bool { return p.Cached() == "a" }, "slot never filled")

		if _, ok := p.Consume("b"); ok {
			t.Error("consume for another item must miss")
		}
		if p.Cached() != "a" {
			t.Error("a missed consume must not clear the slot")
		}
	})

	t.Run("does not refetch a filled slot", func(t *testing.T) {
		resolver := &scriptedResolver{}
		next := ytItem("a")
		head := &headStub{item: &next}
		p := NewPrefetcher(resolver, head.get, nil)

		p.MaybePrefetch(ctx, next, 10, 180, 20)
		eventually(t, func() bool { return p.Cached() == "a" }, "slot never filled")

		p.MaybePrefetch(ctx, next, 5, 180, 20)
		if resolver.callCount() != 1 {
			t.Errorf("expected a single resolver call, got %d", resolver.callCount())
		}
	})

	t.Run("invalidation during flight drops the result", func(t *testing.T) {
		gate := make(chan struct{})
		started := make(chan string, 1)
		resolver := &scriptedResolver{gate: gate, started: started}
		next := ytItem("a")
		head := &headStub{item: &next}
		p := NewPrefetcher(resolver, head.get, nil)

		p.MaybePrefetch(ctx, next, 10, 180, 20)
		<-started
		p.Invalidate()
		close(gate)

		// The result must never land; poll briefly to catch a late store.
		for i := 0; i < 20; i++ {
			if p.Cached() != "" {
				t.Fatal("invalidated in-flight result was stored")
			}
		}
	})

	t.Run("queue reorder during flight drops the result", func(t *testing.T) {
		gate := make(chan struct{})
		started := make(chan string, 1)
		resolver := &scriptedResolver{gate: gate, started: started}
		next := ytItem("a")
		other := ytItem("b")
		head := &headStub{item: &next}
		p := NewPrefetcher(resolver, head.get, nil)

		p.MaybePrefetch(ctx, next, 10, 180, 20)
		<-started
		head.set(&other)
		close(gate)

		for i := 0; i < 20; i++ {
			if p.Cached() != "" {
				t.Fatal("result for a reordered-away head was stored")
			}
		}
	})

	t.Run("one resolve in flight per target", func(t *testing.T) {
		gate := make(chan struct{})
		started := make(chan string, 1)
		resolver := &scriptedResolver{gate: gate, started: started}
		next := ytItem("a")
		head := &headStub{item: &next}
		p := NewPrefetcher(resolver, head.get, nil)

		p.MaybePrefetch(ctx, next, 10, 180, 20)
		<-started
		p.MaybePrefetch(ctx, next, 8, 180, 20)
		close(gate)

		eventually(t, func() bool { return p.Cached() == "a" }, "slot never filled")
		if resolver.callCount() != 1 {
			t.Errorf("expected a single resolver call, got %d", resolver.callCount())
		}
	})

	t.Run("failed resolve leaves the slot empty", func(t *testing.T) {
		resolver := &scriptedResolver{errs: map[string]error{"vid-a": context.DeadlineExceeded}}
		next := ytItem("a")
		head := &headStub{item: &next}
		p := NewPrefetcher(resolver, head.get, nil)

		p.MaybePrefetch(ctx, next, 10, 180, 20)
		eventually(t, func() bool { return resolver.callCount() == 1 }, "resolver never called")
		if p.Cached() != "" {
			t.Error("failed resolve must not fill the slot")
		}
	})
}
