package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/queue"
	"github.com/zalun/karaoke-engine/internal/services"
	"github.com/zalun/karaoke-engine/internal/shared"
)

// Controller is the playback state machine. It owns the single live
// [models.TransportState], drives the active [MediaBackend], consults the
// [Prefetcher] and [Selector] on every load, and applies the recovery policy
// from [Classify].
//
// All state mutation is serialized behind one mutex. Asynchronous boundaries
// (stream resolution, backend readiness) are tagged with the item id and a
// load generation; a result whose identity no longer matches the live state
// is discarded, never applied.
type Controller struct {
	backend  MediaBackend
	resolver services.Resolver
	queue    queue.Queue
	selector *Selector
	prefetch *Prefetcher
	nonEmbed *NonEmbeddableSet
	config   *shared.ConfigHolder
	logger   *log.Logger

	mu        sync.Mutex
	state     models.TransportState
	runCtx    context.Context
	loadGen   int    // bumped on every load; stale async results carry an older value
	loading   string // item id with a load in flight (dedupe)
	retried   string // item id that already used its single stale-URL retry
	autoplay  bool   // play on backend ready
	fromCache bool   // active URL was served from the prefetch cache
	activeSrc Source
	relay     func(models.RemoteCommand) error // non-nil while detached

	subsMu sync.Mutex
	subs   []chan models.Event
}

// ControllerOpts contains the collaborators a Controller is built from.
type ControllerOpts struct {
	Backend  MediaBackend
	Resolver services.Resolver
	Queue    queue.Queue
	Config   *shared.ConfigHolder
	Logger   *log.Logger
}

// NewController wires a controller and its prefetch cache to the queue:
// every queue head change invalidates the cache before it can be read.
func NewController(opts ControllerOpts) *Controller {
	if opts.Config == nil {
		opts.Config = shared.NewConfigHolder(shared.DefaultConfig(), "", opts.Logger)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	c := &Controller{
		backend:  opts.Backend,
		resolver: opts.Resolver,
		queue:    opts.Queue,
		nonEmbed: NewNonEmbeddableSet(),
		config:   opts.Config,
		logger:   shared.WithLogger(opts.Logger, "component", "controller"),
		runCtx:   context.Background(),
	}
	c.state.Volume = 1.0
	c.selector = NewSelector(func() shared.PlaybackMode {
		return opts.Config.Get().Playback.Mode
	}, c.nonEmbed)
	c.prefetch = NewPrefetcher(opts.Resolver, opts.Queue.PeekNext, opts.Logger)
	opts.Queue.Subscribe(c.prefetch.Invalidate)

	return c
}

// Run consumes backend telemetry until ctx is cancelled or the backend
// closes its event channel. It must be running for readiness, progress and
// fault handling to work.
func (c *Controller) Run(ctx context.Context) {
	c.mu.Lock()
	c.runCtx = ctx
	c.mu.Unlock()

	events := c.backend.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handleBackendEvent(ev)
		}
	}
}

// State returns a copy of the live transport state.
func (c *Controller) State() models.TransportState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// NonEmbeddable exposes the session's non-embeddable set.
func (c *Controller) NonEmbeddable() *NonEmbeddableSet {
	return c.nonEmbed
}

// Prefetcher exposes the prefetch cache (read-side, for status reporting).
func (c *Controller) Prefetcher() *Prefetcher {
	return c.prefetch
}

// Subscribe returns a channel of controller events. The channel is buffered
// and sends never block the engine; a subscriber that falls behind loses
// events and should re-read State.
func (c *Controller) Subscribe() <-chan models.Event {
	ch := make(chan models.Event, 32)
	c.subsMu.Lock()
	c.subs = append(c.subs, ch)
	c.subsMu.Unlock()
	return ch
}

// LoadAndPlay loads an item and starts playback once the backend is ready.
// Calling it again for the same item while that load is still in flight is a
// no-op, so exactly one resolver call is made per load.
func (c *Controller) LoadAndPlay(item models.PlaybackItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return c.beginLoad(item, false)
}

func (c *Controller) beginLoad(item models.PlaybackItem, forceFresh bool) error {
	c.mu.Lock()
	if c.state.IsDetached {
		c.mu.Unlock()
		return shared.ErrDetached
	}
	if c.state.IsLoading && c.loading == item.ID && !forceFresh {
		// Same item already loading; the first call wins.
		c.mu.Unlock()
		return nil
	}

	c.loadGen++
	gen := c.loadGen
	c.loading = item.ID
	it := item
	c.state.CurrentItem = &it
	c.state.ResolvedURL = ""
	c.state.IsLoading = true
	c.state.IsPlaying = false
	c.state.CurrentTime = 0
	c.state.Duration = item.DurationHint
	c.state.PendingSeek = nil
	c.autoplay = true
	c.fromCache = false
	backendKind := c.selector.For(item)
	ctx := c.runCtx
	c.mu.Unlock()

	// A slot left over for some other item is dead weight now: the video
	// changed without consumption.
	if cached := c.prefetch.Cached(); cached != "" && cached != item.ID {
		c.prefetch.Invalidate()
	}

	c.emit(models.Event{Type: models.EventStateChanged, Item: &it})
	c.logger.Info("loading item", "item", item.ID, "title", item.Title, "backend", backendKind)

	src, err := c.buildSource(ctx, item, backendKind, forceFresh)
	if err != nil {
		c.failLoad(item, gen, err)
		return err
	}

	// Revalidate: the resolver call above may have suspended while another
	// load or a detach took over the transport.
	c.mu.Lock()
	if c.loadGen != gen || c.state.CurrentItem == nil || c.state.CurrentItem.ID != item.ID {
		c.mu.Unlock()
		c.logger.Debug("discarding stale load", "item", item.ID)
		return nil
	}
	if src.Kind != SourceEmbed {
		c.state.ResolvedURL = src.Location
	}
	c.fromCache = src.FromCache
	c.activeSrc = src
	c.mu.Unlock()

	if err := c.backend.Load(ctx, src); err != nil {
		err = fmt.Errorf("%w: %v", shared.ErrResolver, err)
		c.failLoad(item, gen, err)
		return err
	}
	return nil
}

// buildSource maps the backend choice to a loadable source, consulting the
// prefetch cache before the resolver for resolved-URL playback.
func (c *Controller) buildSource(ctx context.Context, item models.PlaybackItem, kind Backend, forceFresh bool) (Source, error) {
	switch kind {
	case BackendLocalFile:
		return Source{Kind: SourceFile, Location: item.MediaRef}, nil
	case BackendEmbedded:
		return Source{Kind: SourceEmbed, MediaID: item.MediaRef}, nil
	default:
		if item.Origin == models.OriginExternal {
			return Source{Kind: SourceURL, Location: item.MediaRef}, nil
		}
		if !forceFresh {
			if url, ok := c.prefetch.Consume(item.ID); ok {
				c.logger.Debug("prefetch cache hit", "item", item.ID)
				return Source{Kind: SourceURL, Location: url, MediaID: item.MediaRef, FromCache: true}, nil
			}
		}
		stream, err := c.resolver.Resolve(ctx, item.MediaRef)
		if err != nil {
			return Source{}, err
		}
		return Source{Kind: SourceURL, Location: stream.URL, MediaID: item.MediaRef}, nil
	}
}

// failLoad halts the transport for a load that failed, unless the load has
// already been superseded.
func (c *Controller) failLoad(item models.PlaybackItem, gen int, err error) {
	c.mu.Lock()
	if c.loadGen != gen {
		c.mu.Unlock()
		return
	}
	c.state.IsLoading = false
	c.state.IsPlaying = false
	c.loading = ""
	c.mu.Unlock()

	c.logger.Error("load failed", "item", item.ID, "error", err)
	c.emit(models.Event{
		Type:   models.EventHalted,
		Item:   &item,
		Notice: fmt.Sprintf("could not load %q", item.Title),
		Err:    err,
	})
}

// Pause pauses playback. While detached the pause is relayed to the
// secondary window; the primary state stays authoritative either way.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if c.state.CurrentItem == nil {
		c.mu.Unlock()
		return shared.ErrNothingPlaying
	}
	if c.state.IsLoading {
		// Not ready yet: cancel the autoplay instead.
		c.autoplay = false
		c.state.IsPlaying = false
		c.mu.Unlock()
		c.emit(models.Event{Type: models.EventStateChanged})
		return nil
	}
	c.state.IsPlaying = false
	detached := c.state.IsDetached
	relay := c.relay
	c.mu.Unlock()

	var err error
	if detached {
		err = relay(models.RemoteCommand{Kind: models.CmdPause})
	} else {
		err = c.backend.Pause()
	}
	c.emit(models.Event{Type: models.EventStateChanged})
	return err
}

// Resume resumes paused playback.
func (c *Controller) Resume() error {
	c.mu.Lock()
	if c.state.CurrentItem == nil {
		c.mu.Unlock()
		return shared.ErrNothingPlaying
	}
	if c.state.IsLoading {
		c.autoplay = true
		c.mu.Unlock()
		return nil
	}
	c.state.IsPlaying = true
	detached := c.state.IsDetached
	relay := c.relay
	c.mu.Unlock()

	var err error
	if detached {
		err = relay(models.RemoteCommand{Kind: models.CmdPlay})
	} else {
		err = c.backend.Play()
	}
	c.emit(models.Event{Type: models.EventStateChanged})
	return err
}

// Seek jumps to an absolute position in seconds, clamped to [0, duration].
// A seek issued before the backend is ready is buffered and applied on ready.
func (c *Controller) Seek(seconds float64) error {
	c.mu.Lock()
	if c.state.CurrentItem == nil {
		c.mu.Unlock()
		return shared.ErrNothingPlaying
	}
	target := clampSeek(seconds, c.state.Duration)
	if c.state.IsLoading {
		c.state.PendingSeek = &target
		c.mu.Unlock()
		c.emit(models.Event{Type: models.EventStateChanged})
		return nil
	}
	c.state.CurrentTime = target
	detached := c.state.IsDetached
	relay := c.relay
	c.mu.Unlock()

	var err error
	if detached {
		err = relay(models.RemoteCommand{Kind: models.CmdSeek, Value: target})
	} else {
		err = c.backend.SeekTo(target)
	}
	c.emit(models.Event{Type: models.EventProgress})
	return err
}

func clampSeek(seconds, duration float64) float64 {
	if seconds < 0 {
		return 0
	}
	if duration > 0 && seconds > duration {
		return duration
	}
	return seconds
}

// SetVolume sets the volume in [0, 1]. Immediate and local; no resolver or
// network round trip is involved.
func (c *Controller) SetVolume(v float64) error {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	c.mu.Lock()
	c.state.Volume = v
	detached := c.state.IsDetached
	relay := c.relay
	loading := c.state.IsLoading
	c.mu.Unlock()

	var err error
	switch {
	case detached:
		err = relay(models.RemoteCommand{Kind: models.CmdVolume, Value: v})
	case loading:
		// Applied on ready.
	default:
		err = c.backend.SetVolume(v)
	}
	c.emit(models.Event{Type: models.EventStateChanged})
	return err
}

// ToggleMute flips the mute flag.
func (c *Controller) ToggleMute() error {
	c.mu.Lock()
	c.state.IsMuted = !c.state.IsMuted
	muted := c.state.IsMuted
	detached := c.state.IsDetached
	relay := c.relay
	loading := c.state.IsLoading
	c.mu.Unlock()

	var err error
	switch {
	case detached:
		err = relay(models.RemoteCommand{Kind: models.CmdMute, Flag: muted})
	case loading:
	default:
		err = c.backend.SetMuted(muted)
	}
	c.emit(models.Event{Type: models.EventStateChanged})
	return err
}

// AdvanceOnEnded advances to the next item in queue order, never through
// playback history, so manually played songs cannot replay old history. An
// empty queue stops the transport.
func (c *Controller) AdvanceOnEnded() error {
	c.mu.Lock()
	ended := c.state.CurrentItem
	c.mu.Unlock()
	if ended != nil {
		endedCopy := *ended
		c.emit(models.Event{Type: models.EventTrackEnded, Item: &endedCopy})
	}

	next := c.queue.Advance()
	if next == nil {
		c.mu.Lock()
		c.loadGen++ // cancel any in-flight load
		c.loading = ""
		c.state.CurrentItem = nil
		c.state.ResolvedURL = ""
		c.state.IsPlaying = false
		c.state.IsLoading = false
		c.state.CurrentTime = 0
		c.state.Duration = 0
		c.state.PendingSeek = nil
		c.mu.Unlock()

		if err := c.backend.Unload(); err != nil {
			c.logger.Warn("backend unload failed", "error", err)
		}
		c.prefetch.Invalidate()
		c.emit(models.Event{Type: models.EventQueueEmpty})
		return nil
	}
	return c.LoadAndPlay(*next)
}

// ReportError feeds a backend fault through the classifier and applies the
// recovery policy. Self-healing classes only surface a transient notice;
// terminal classes halt playback for the item without auto-advancing.
func (c *Controller) ReportError(sig models.FaultSignal) {
	c.mu.Lock()
	cur := c.state.CurrentItem
	if cur == nil {
		c.mu.Unlock()
		return
	}
	item := *cur

	// The backend cannot know where its URL came from; fold in what the
	// controller remembers about the active source.
	sig.URLFromCache = sig.URLFromCache || c.fromCache
	if sig.MediaID == "" {
		sig.MediaID = item.MediaRef
	}
	class := Classify(sig, c.retried == item.ID)
	c.mu.Unlock()

	c.logger.Warn("backend fault", "item", item.ID, "code", sig.Code.String(), "class", class.String(), "detail", sig.Detail)

	switch class {
	case ClassEmbeddingDisallowed:
		c.nonEmbed.Add(item.MediaRef)
		c.emit(models.Event{
			Type:   models.EventNotice,
			Item:   &item,
			Notice: fmt.Sprintf("%q cannot be played embedded, skipping", item.Title),
		})
		if err := c.AdvanceOnEnded(); err != nil {
			c.logger.Error("auto-advance after embed refusal failed", "error", err)
		}

	case ClassStaleURL:
		c.mu.Lock()
		c.retried = item.ID
		c.mu.Unlock()
		c.emit(models.Event{
			Type:   models.EventNotice,
			Item:   &item,
			Notice: fmt.Sprintf("stream link for %q expired, refreshing", item.Title),
		})
		if err := c.beginLoad(item, true); err != nil {
			c.logger.Error("stale-url retry failed", "item", item.ID, "error", err)
		}

	default:
		c.mu.Lock()
		c.state.IsPlaying = false
		c.state.IsLoading = false
		c.loading = ""
		c.mu.Unlock()

		err := shared.ErrDecodeFailure
		if class == ClassUnsupported {
			err = shared.ErrUnsupportedMedia
		}
		c.emit(models.Event{
			Type:   models.EventHalted,
			Item:   &item,
			Notice: fmt.Sprintf("playback of %q failed", item.Title),
			Err:    fmt.Errorf("%w: %s", err, sig.Detail),
		})
	}
}

// handleBackendEvent folds primary-backend telemetry into the transport
// state. Telemetry arriving while detached belongs to a dying backend and is
// ignored; the detached window reports through ApplyRemote instead.
func (c *Controller) handleBackendEvent(ev BackendEvent) {
	c.mu.Lock()
	if c.state.IsDetached || c.state.CurrentItem == nil {
		c.mu.Unlock()
		return
	}

	switch ev.Kind {
	case BackendReady:
		c.state.IsLoading = false
		c.loading = ""
		pending := c.state.PendingSeek
		c.state.PendingSeek = nil
		volume := c.state.Volume
		muted := c.state.IsMuted
		autoplay := c.autoplay
		item := *c.state.CurrentItem
		c.state.IsPlaying = autoplay
		c.mu.Unlock()

		_ = c.backend.SetVolume(volume)
		_ = c.backend.SetMuted(muted)
		if pending != nil {
			if err := c.backend.SeekTo(*pending); err != nil {
				c.logger.Warn("pending seek failed", "error", err)
			}
			c.mu.Lock()
			c.state.CurrentTime = *pending
			c.mu.Unlock()
		}
		if autoplay {
			if err := c.backend.Play(); err != nil {
				c.logger.Warn("autoplay failed", "error", err)
			}
		}
		c.emit(models.Event{Type: models.EventTrackStarted, Item: &item})

	case BackendTime:
		c.state.CurrentTime = ev.Value
		c.mu.Unlock()
		c.emit(models.Event{Type: models.EventProgress})
		c.maybePrefetchNext()

	case BackendDuration:
		c.state.Duration = ev.Value
		c.mu.Unlock()
		c.emit(models.Event{Type: models.EventProgress})
		c.maybePrefetchNext()

	case BackendEnded:
		c.mu.Unlock()
		if err := c.AdvanceOnEnded(); err != nil {
			c.logger.Error("advance on ended failed", "error", err)
		}

	case BackendFault:
		c.mu.Unlock()
		if ev.Fault != nil {
			c.ReportError(*ev.Fault)
		}

	default:
		c.mu.Unlock()
	}
}

// maybePrefetchNext checks whether the upcoming queue item should have its
// URL prefetched. Only items that will play from a resolved URL need it.
func (c *Controller) maybePrefetchNext() {
	next := c.queue.PeekNext()
	if next == nil {
		return
	}
	if c.selector.For(*next) != BackendResolvedURL || next.Origin == models.OriginExternal {
		return
	}

	c.mu.Lock()
	remaining := c.state.TimeRemaining()
	duration := c.state.Duration
	ctx := c.runCtx
	c.mu.Unlock()

	threshold := c.config.Get().Playback.PrefetchThresholdSecs
	c.prefetch.MaybePrefetch(ctx, *next, remaining, duration, threshold)
}

func (c *Controller) snapshotLocked() models.TransportState {
	st := c.state
	if st.CurrentItem != nil {
		item := *st.CurrentItem
		st.CurrentItem = &item
	}
	if st.PendingSeek != nil {
		seek := *st.PendingSeek
		st.PendingSeek = &seek
	}
	return st
}

// emit broadcasts an event with a fresh state snapshot. Sends are
// non-blocking; a full subscriber buffer drops the event.
func (c *Controller) emit(ev models.Event) {
	c.mu.Lock()
	ev.State = c.snapshotLocked()
	c.mu.Unlock()

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
