// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is the host-facing control surface for a running karaoke session:
//  1. [TransportView] : Now playing, progress bar, overlay banners, transport keys
//  2. [QueueView] : Browse the rotation, promote or drop queued songs
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Engine events flow through the controller's subscription channel and are folded
// into the model one message at a time, so the view is always a render of the last
// observed transport state, never a second source of truth.
//
// Keyboard navigation uses vim-style bindings (space, n, d, r, m, arrows, tab, q)
// with contextual help displayed via charmbracelet/bubbles/help.
package ui
