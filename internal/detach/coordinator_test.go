package detach

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/playback"
	"github.com/zalun/karaoke-engine/internal/queue"
	"github.com/zalun/karaoke-engine/internal/shared"
	mocks "github.com/zalun/karaoke-engine/internal/testing"
)

// fakeWindow is an in-memory secondary window under test control.
type fakeWindow struct {
	mu      sync.Mutex
	cmds    []models.RemoteCommand
	closed  bool
	sendErr error

	events    chan models.RemoteEvent
	closeOnce sync.Once
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{events: make(chan models.RemoteEvent, 16)}
}

func (w *fakeWindow) SendCommand(cmd models.RemoteCommand) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sendErr != nil {
		return w.sendErr
	}
	w.cmds = append(w.cmds, cmd)
	return nil
}

func (w *fakeWindow) Events() <-chan models.RemoteEvent { return w.events }

func (w *fakeWindow) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.closeOnce.Do(func() { close(w.events) })
	return nil
}

func (w *fakeWindow) emit(ev models.RemoteEvent) { w.events <- ev }

func (w *fakeWindow) commands() []models.RemoteCommand {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.RemoteCommand(nil), w.cmds...)
}

func (w *fakeWindow) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// fakeHost hands out a prepared window, or fails.
type fakeHost struct {
	mu     sync.Mutex
	window *fakeWindow
	err    error
	snaps  []models.DetachSnapshot
}

func (h *fakeHost) CreateWindow(_ context.Context, snap models.DetachSnapshot) (WindowHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snaps = append(h.snaps, snap)
	if h.err != nil {
		return nil, h.err
	}
	return h.window, nil
}

func testItem(id string) models.PlaybackItem {
	return models.PlaybackItem{ID: id, Title: "song " + id, Origin: models.OriginYouTube, MediaRef: "vid-" + id, DurationHint: 180}
}

// playingFixture builds a controller playing one item, with its backend event
// loop running.
func playingFixture(t *testing.T) (*playback.Controller, *mocks.MockBackend, *queue.List) {
	t.Helper()
	backend := mocks.NewMockBackend()
	q := queue.NewList()
	ctrl := playback.NewController(playback.ControllerOpts{
		Backend:  backend,
		Resolver: &mocks.MockResolver{},
		Queue:    q,
		Config:   shared.NewConfigHolder(shared.DefaultConfig(), "", nil),
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ctrl.Run(ctx)

	if err := ctrl.LoadAndPlay(testItem("a")); err != nil {
		t.Fatal(err)
	}
	backend.Emit(playback.BackendEvent{Kind: playback.BackendReady})
	eventually(t, func() bool { return ctrl.State().IsPlaying }, "playback never started")
	return ctrl, backend, q
}

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

func TestCoordinatorDetach(t *testing.T) {
	t.Run("hands playback to a new window", func(t *testing.T) {
		ctrl, backend, _ := playingFixture(t)
		window := newFakeWindow()
		host := &fakeHost{window: window}
		coord := NewCoordinator(ctrl, host, nil, nil)

		session, err := coord.Detach(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if session == nil || session.WindowID == "" {
			t.Fatal("expected a session handle")
		}
		if !coord.Detached() || !ctrl.State().IsDetached {
			t.Error("expected a detached transport")
		}
		eventually(t, func() bool { return backend.Unloads() == 1 }, "primary backend never released")

		host.mu.Lock()
		snap := host.snaps[0]
		host.mu.Unlock()
		if snap.Source != "https://www.youtube.com/watch?v=vid-a" {
			t.Errorf("unexpected snapshot source %q", snap.Source)
		}
		if !snap.IsPlaying {
			t.Error("snapshot should carry the playing flag")
		}
	})

	t.Run("refuses a second detach", func(t *testing.T) {
		ctrl, _, _ := playingFixture(t)
		coord := NewCoordinator(ctrl, &fakeHost{window: newFakeWindow()}, nil, nil)

		if _, err := coord.Detach(context.Background()); err != nil {
			t.Fatal(err)
		}
		if _, err := coord.Detach(context.Background()); !errors.Is(err, shared.ErrDetachUnavailable) {
			t.Errorf("expected ErrDetachUnavailable, got %v", err)
		}
	})

	t.Run("window creation failure leaves playback untouched", func(t *testing.T) {
		ctrl, backend, _ := playingFixture(t)
		host := &fakeHost{err: errors.New("no display")}
		coord := NewCoordinator(ctrl, host, nil, nil)

		_, err := coord.Detach(context.Background())
		if !errors.Is(err, shared.ErrDetachFailed) {
			t.Fatalf("expected ErrDetachFailed, got %v", err)
		}
		if coord.Detached() || ctrl.State().IsDetached {
			t.Error("failed detach must leave the transport attached")
		}
		// Prepare paused the backend; the abort resumed it.
		if backend.Plays() != 2 {
			t.Errorf("expected playback resumed after abort, got %d plays", backend.Plays())
		}
		if backend.Unloads() != 0 {
			t.Error("failed detach must not release the primary backend")
		}
	})
}

func TestCoordinatorRelay(t *testing.T) {
	t.Run("queues commands until the window is ready", func(t *testing.T) {
		ctrl, _, _ := playingFixture(t)
		window := newFakeWindow()
		coord := NewCoordinator(ctrl, &fakeHost{window: window}, nil, nil)

		if _, err := coord.Detach(context.Background()); err != nil {
			t.Fatal(err)
		}

		// The window has not signalled readiness yet: both commands queue.
		if err := ctrl.Pause(); err != nil {
			t.Fatal(err)
		}
		if err := ctrl.Seek(30); err != nil {
			t.Fatal(err)
		}
		if len(window.commands()) != 0 {
			t.Fatalf("commands leaked before readiness: %v", window.commands())
		}

		window.emit(models.RemoteEvent{Kind: models.RemoteReady})
		eventually(t, func() bool { return len(window.commands()) == 2 }, "queued commands never flushed")

		cmds := window.commands()
		if cmds[0].Kind != models.CmdPause || cmds[1].Kind != models.CmdSeek || cmds[1].Value != 30 {
			t.Errorf("unexpected flush order %v", cmds)
		}

		// Post-readiness commands go straight through.
		if err := ctrl.Resume(); err != nil {
			t.Fatal(err)
		}
		eventually(t, func() bool { return len(window.commands()) == 3 }, "live command never relayed")
	})

	t.Run("relay without a session fails", func(t *testing.T) {
		ctrl, _, _ := playingFixture(t)
		coord := NewCoordinator(ctrl, &fakeHost{window: newFakeWindow()}, nil, nil)
		err := coord.RelayCommand(models.RemoteCommand{Kind: models.CmdPause})
		if !errors.Is(err, shared.ErrNotDetached) {
			t.Errorf("expected ErrNotDetached, got %v", err)
		}
	})
}

func TestCoordinatorReattach(t *testing.T) {
	detachFixture := func(t *testing.T) (*playback.Controller, *mocks.MockBackend, *queue.List, *fakeWindow, *Coordinator) {
		t.Helper()
		ctrl, backend, q := playingFixture(t)
		window := newFakeWindow()
		coord := NewCoordinator(ctrl, &fakeHost{window: window}, nil, nil)
		if _, err := coord.Detach(context.Background()); err != nil {
			t.Fatal(err)
		}
		window.emit(models.RemoteEvent{Kind: models.RemoteReady})
		return ctrl, backend, q, window, coord
	}

	t.Run("restores the last known position above the threshold", func(t *testing.T) {
		ctrl, backend, _, window, coord := detachFixture(t)

		window.emit(models.RemoteEvent{Kind: models.RemoteDuration, Value: 200})
		window.emit(models.RemoteEvent{Kind: models.RemoteTime, Value: 40})
		eventually(t, func() bool {
			s := coord.Session()
			return s != nil && s.LastKnownPosition == 40
		}, "session never picked up telemetry")

		if err := coord.Reattach(); err != nil {
			t.Fatal(err)
		}
		if !window.isClosed() {
			t.Error("reattach must close the window")
		}
		st := ctrl.State()
		if st.IsDetached {
			t.Fatal("expected attached transport")
		}
		if st.PendingSeek == nil || *st.PendingSeek != 40 {
			t.Fatalf("expected pending seek 40, got %v", st.PendingSeek)
		}
		eventually(t, func() bool { return len(backend.Loads()) == 2 }, "primary backend never reloaded")
	})

	t.Run("restarts from zero below the threshold", func(t *testing.T) {
		ctrl, _, _, window, coord := detachFixture(t)

		window.emit(models.RemoteEvent{Kind: models.RemoteTime, Value: 2})
		eventually(t, func() bool {
			s := coord.Session()
			return s != nil && s.LastKnownPosition == 2
		}, "session never picked up telemetry")

		if err := coord.Reattach(); err != nil {
			t.Fatal(err)
		}
		st := ctrl.State()
		if st.PendingSeek != nil {
			t.Errorf("expected a restart from zero, got pending seek %v", *st.PendingSeek)
		}
		if st.CurrentTime != 0 {
			t.Errorf("expected position 0, got %v", st.CurrentTime)
		}
	})

	t.Run("reattach without a session fails", func(t *testing.T) {
		ctrl, _, _ := playingFixture(t)
		coord := NewCoordinator(ctrl, &fakeHost{window: newFakeWindow()}, nil, nil)
		if err := coord.Reattach(); !errors.Is(err, shared.ErrNotDetached) {
			t.Errorf("expected ErrNotDetached, got %v", err)
		}
	})

	t.Run("closing the window reattaches implicitly", func(t *testing.T) {
		ctrl, backend, _, window, coord := detachFixture(t)

		window.emit(models.RemoteEvent{Kind: models.RemoteTime, Value: 40})
		window.emit(models.RemoteEvent{Kind: models.RemoteClosed})

		eventually(t, func() bool { return !coord.Detached() }, "session never ended")
		eventually(t, func() bool { return !ctrl.State().IsDetached }, "transport never reattached")
		eventually(t, func() bool { return len(backend.Loads()) == 2 }, "primary backend never reloaded")
	})

	t.Run("natural end advances the queue in the primary window", func(t *testing.T) {
		ctrl, _, q, window, coord := detachFixture(t)
		q.Add(testItem("b"))

		window.emit(models.RemoteEvent{Kind: models.RemoteEnded})

		eventually(t, func() bool { return !coord.Detached() }, "session never ended")
		eventually(t, func() bool {
			st := ctrl.State()
			return st.CurrentItem != nil && st.CurrentItem.ID == "b" && !st.IsDetached
		}, "queue never advanced into the primary window")
	})

	t.Run("remote fault ends the session and reports", func(t *testing.T) {
		ctrl, _, _, window, coord := detachFixture(t)

		window.emit(models.RemoteEvent{
			Kind:  models.RemoteFault,
			Fault: &models.FaultSignal{Code: models.FaultDecode, Detail: "demux error"},
		})

		eventually(t, func() bool { return !coord.Detached() }, "session never ended")
		eventually(t, func() bool {
			st := ctrl.State()
			return !st.IsDetached && !st.IsPlaying
		}, "transport never halted")
		if got := ctrl.State().CurrentItem; got == nil || got.ID != "a" {
			t.Errorf("halt must keep the failed item current, got %+v", got)
		}
	})
}
