package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	toggle   key.Binding
	next     key.Binding
	detach   key.Binding
	reattach key.Binding
	mute     key.Binding
	seekBack key.Binding
	seekFwd  key.Binding
	volUp    key.Binding
	volDown  key.Binding
	tab      key.Binding
	enter    key.Binding
	remove   key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		detach:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "detach")),
		reattach: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reattach")),
		mute:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		seekBack: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "seek -5s")),
		seekFwd:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "seek +5s")),
		volUp:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "volume up")),
		volDown:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "volume down")),
		tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "queue")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "sing next")),
		remove:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.next, k.mute},
		{k.seekBack, k.seekFwd, k.volUp, k.volDown},
		{k.detach, k.reattach, k.tab, k.quit},
	}
}
