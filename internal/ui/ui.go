package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zalun/karaoke-engine/internal/detach"
	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/overlay"
	"github.com/zalun/karaoke-engine/internal/playback"
	"github.com/zalun/karaoke-engine/internal/queue"
	"github.com/zalun/karaoke-engine/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TransportView ViewState = iota
	QueueView
)

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	ctrl   *playback.Controller
	coord  *detach.Coordinator
	queue  *queue.List
	config *shared.ConfigHolder

	view   ViewState
	width  int
	height int

	events   <-chan models.Event
	state    models.TransportState
	overlays overlay.State
	notice   string
	err      error

	bar       progress.Model
	queueList list.Model
	help      help.Model
	keys      keyMap
}

type engineEventMsg models.Event

type detachDoneMsg struct {
	err error
}

type reattachDoneMsg struct {
	err error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, ctrl *playback.Controller, coord *detach.Coordinator, q *queue.List, config *shared.ConfigHolder) *Model {
	ql := list.New(queueItems(q.Items()), list.NewDefaultDelegate(), 0, 0)
	ql.Title = "Rotation"

	return &Model{
		ctx:       ctx,
		ctrl:      ctrl,
		coord:     coord,
		queue:     q,
		config:    config,
		view:      TransportView,
		events:    ctrl.Subscribe(),
		state:     ctrl.State(),
		bar:       progress.New(progress.WithDefaultGradient()),
		queueList: ql,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init starts the engine event pump.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 8
		m.queueList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case engineEventMsg:
		m.applyEvent(models.Event(msg))
		return m, m.waitForEvent()

	case detachDoneMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("detach failed: %v", msg.err)
		} else {
			m.notice = "playback moved to the external window"
		}
		m.state = m.ctrl.State()
		return m, nil

	case reattachDoneMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("reattach failed: %v", msg.err)
		} else {
			m.notice = ""
		}
		m.state = m.ctrl.State()
		return m, nil
	}

	if m.view == QueueView {
		var cmd tea.Cmd
		m.queueList, cmd = m.queueList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// applyEvent folds one engine event into the view state.
func (m *Model) applyEvent(ev models.Event) {
	m.state = ev.State

	switch ev.Type {
	case models.EventTrackStarted:
		m.notice = ""
		m.err = nil
	case models.EventNotice:
		m.notice = ev.Notice
	case models.EventHalted:
		m.notice = ev.Notice
		m.err = ev.Err
	case models.EventQueueEmpty:
		m.notice = "queue finished"
	}

	if m.state.CurrentItem != nil {
		cfg := m.config.Get().Overlay
		m.overlays = overlay.Decide(m.state.CurrentTime, m.state.Duration, overlay.Config{
			NextUpThreshold: cfg.NextUpSecs,
			SingerThreshold: cfg.SingerSecs,
		})
	} else {
		m.overlays = overlay.State{}
	}

	m.queueList.SetItems(queueItems(m.queue.Items()))
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		if m.view == TransportView {
			m.view = QueueView
		} else {
			m.view = TransportView
		}
		return m, nil
	}

	if m.view == QueueView {
		return m.handleQueueKeys(msg)
	}
	return m.handleTransportKeys(msg)
}

func (m *Model) handleTransportKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.toggle):
		if m.state.IsPlaying {
			m.report(m.ctrl.Pause())
		} else {
			m.report(m.ctrl.Resume())
		}
	case key.Matches(msg, m.keys.next):
		m.report(m.ctrl.AdvanceOnEnded())
	case key.Matches(msg, m.keys.mute):
		m.report(m.ctrl.ToggleMute())
	case key.Matches(msg, m.keys.seekBack):
		m.report(m.ctrl.Seek(m.state.CurrentTime - 5))
	case key.Matches(msg, m.keys.seekFwd):
		m.report(m.ctrl.Seek(m.state.CurrentTime + 5))
	case key.Matches(msg, m.keys.volUp):
		m.report(m.ctrl.SetVolume(m.state.Volume + 0.05))
	case key.Matches(msg, m.keys.volDown):
		m.report(m.ctrl.SetVolume(m.state.Volume - 0.05))
	case key.Matches(msg, m.keys.detach):
		return m, func() tea.Msg {
			_, err := m.coord.Detach(m.ctx)
			return detachDoneMsg{err: err}
		}
	case key.Matches(msg, m.keys.reattach):
		return m, func() tea.Msg {
			return reattachDoneMsg{err: m.coord.Reattach()}
		}
	}
	m.state = m.ctrl.State()
	return m, nil
}

func (m *Model) handleQueueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter):
		if selected, ok := m.queueList.SelectedItem().(queueItem); ok {
			m.queue.MoveToFront(selected.item.ID)
			m.queueList.SetItems(queueItems(m.queue.Items()))
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if selected, ok := m.queueList.SelectedItem().(queueItem); ok {
			m.queue.Remove(selected.item.ID)
			m.queueList.SetItems(queueItems(m.queue.Items()))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.queueList, cmd = m.queueList.Update(msg)
	return m, cmd
}

// report surfaces a transport error as a notice instead of crashing the view.
func (m *Model) report(err error) {
	if err != nil {
		m.notice = err.Error()
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case QueueView:
		return m.renderQueue()
	default:
		return m.renderTransport()
	}
}

func (m *Model) renderTransport() string {
	title := styles.title.Render("Karaoke Session")

	var body string
	switch {
	case m.state.CurrentItem == nil:
		body = styles.help.Render("Nothing playing. Queue a song and press n.")
	default:
		item := m.state.CurrentItem
		line := item.Title
		if item.Artist != "" {
			line = fmt.Sprintf("%s • sung by %s", item.Title, item.Artist)
		}
		body = styles.ok.Render(line)

		percent := 0.0
		if m.state.Duration > 0 {
			percent = m.state.CurrentTime / m.state.Duration
		}
		clock := fmt.Sprintf("%s / %s", shared.FormatClock(m.state.CurrentTime), shared.FormatClock(m.state.Duration))
		body += fmt.Sprintf("\n\n%s  %s", m.bar.ViewAs(percent), clock)
		body += "\n" + m.statusLine()
	}

	if banner := m.renderBanners(); banner != "" {
		body += "\n\n" + banner
	}
	if m.notice != "" {
		style := styles.warn
		if m.err != nil {
			style = styles.err
		}
		body += "\n\n" + style.Render(m.notice)
	}

	helpView := m.help.ShortHelpView([]key.Binding{
		m.keys.toggle, m.keys.next, m.keys.detach, m.keys.tab, m.keys.quit,
	})
	return fmt.Sprintf("%s\n%s\n\n%s", title, body, helpView)
}

func (m *Model) statusLine() string {
	var status string
	switch {
	case m.state.IsDetached:
		status = "detached"
	case m.state.IsLoading:
		status = "loading"
	case m.state.IsPlaying:
		status = "playing"
	default:
		status = "paused"
	}
	volume := fmt.Sprintf("vol %d%%", int(m.state.Volume*100+0.5))
	if m.state.IsMuted {
		volume = "muted"
	}
	return styles.help.Render(fmt.Sprintf("%s • %s", status, volume))
}

func (m *Model) renderBanners() string {
	var banners string
	if m.overlays.ShowCurrentSinger && m.state.CurrentItem != nil && m.state.CurrentItem.Artist != "" {
		banners = styles.banner.Render(fmt.Sprintf("Now singing: %s", m.state.CurrentItem.Artist))
	}
	if m.overlays.ShowNextUp {
		if next := m.queue.PeekNext(); next != nil {
			up := next.Title
			if next.Artist != "" {
				up = fmt.Sprintf("%s (%s)", next.Title, next.Artist)
			}
			if banners != "" {
				banners += "\n"
			}
			banners += styles.banner.Render(fmt.Sprintf("Up next: %s", up))
		}
	}
	return banners
}

func (m *Model) renderQueue() string {
	helpView := m.help.ShortHelpView([]key.Binding{
		m.keys.enter, m.keys.remove, m.keys.tab, m.keys.quit,
	})
	return fmt.Sprintf("%s\n\n%s", m.queueList.View(), helpView)
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return tea.Quit()
		}
		return engineEventMsg(ev)
	}
}
