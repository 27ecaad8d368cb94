package playback

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/services"
	"github.com/zalun/karaoke-engine/internal/shared"
)

// prefetchEntry is the single cache slot. Valid only while forItemID still
// equals the queue's next item id.
type prefetchEntry struct {
	forItemID string
	url       string
	fetchedAt time.Time
}

// Prefetcher speculatively resolves the next queue item's URL before it is
// needed, hiding resolver latency at song transitions.
//
// A prefetch captures the target item id at trigger time; when the resolver
// call completes the result is stored only if the live queue head still
// matches the captured id. Queue reorders that happen while the call is in
// flight therefore never leave a stale entry behind.
type Prefetcher struct {
	resolver services.Resolver
	head     func() *models.PlaybackItem // live queue head accessor
	logger   *log.Logger

	mu       sync.Mutex
	entry    *prefetchEntry
	inflight string // item id with a resolve in flight
	gen      int    // bumped on invalidation; in-flight results from older generations are dropped
}

// NewPrefetcher creates a prefetcher resolving through resolver and
// validating against the live queue head returned by head.
func NewPrefetcher(resolver services.Resolver, head func() *models.PlaybackItem, logger *log.Logger) *Prefetcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Prefetcher{
		resolver: resolver,
		head:     head,
		logger:   shared.WithLogger(logger, "component", "prefetch"),
	}
}

// MaybePrefetch triggers a resolver call for next when the current item is
// close enough to its end: timeRemaining at or under the threshold, or the
// whole clip shorter than the threshold (short-clip case, which fires on
// load rather than at duration minus threshold). A threshold of 0 disables
// prefetching; an unknown duration never triggers.
//
// At most one resolve is in flight per target id, and a slot already filled
// for the same id is not refetched.
func (p *Prefetcher) MaybePrefetch(ctx context.Context, next models.PlaybackItem, timeRemaining, duration, threshold float64) {
	if threshold <= 0 || duration <= 0 {
		return
	}
	if timeRemaining > threshold && duration > threshold {
		return
	}

	p.mu.Lock()
	if p.entry != nil && p.entry.forItemID == next.ID {
		p.mu.Unlock()
		return
	}
	if p.inflight == next.ID {
		p.mu.Unlock()
		return
	}
	p.inflight = next.ID
	gen := p.gen
	p.mu.Unlock()

	go p.resolveAndStore(ctx, next, gen)
}

func (p *Prefetcher) resolveAndStore(ctx context.Context, next models.PlaybackItem, gen int) {
	stream, err := p.resolver.Resolve(ctx, next.MediaRef)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inflight == next.ID {
		p.inflight = ""
	}

	if err != nil {
		// Prefetch is speculative; the load path will resolve again.
		p.logger.Debug("prefetch resolve failed", "item", next.ID, "error", err)
		return
	}

	// Revalidate: the slot was invalidated, or the queue head moved while
	// the resolver call was in flight. Either way the result is stale.
	if p.gen != gen {
		return
	}
	if head := p.head(); head == nil || head.ID != next.ID {
		p.logger.Debug("discarding prefetch for reordered queue", "item", next.ID)
		return
	}

	p.entry = &prefetchEntry{forItemID: next.ID, url: stream.URL, fetchedAt: time.Now()}
	p.logger.Debug("prefetched next stream", "item", next.ID)
}

// Consume returns and clears the cached URL if the slot was filled for
// itemID. A mismatch returns ok=false, forcing a fresh resolver call.
func (p *Prefetcher) Consume(itemID string) (url string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.entry == nil || p.entry.forItemID != itemID {
		return "", false
	}
	url = p.entry.url
	p.entry = nil
	return url, true
}

// Invalidate clears the slot and drops any in-flight result. Wired to queue
// head changes so a reorder empties the cache before it can be read.
func (p *Prefetcher) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entry = nil
	p.gen++
}

// Cached reports the item id currently occupying the slot, or "".
func (p *Prefetcher) Cached() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.entry == nil {
		return ""
	}
	return p.entry.forItemID
}
