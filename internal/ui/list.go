package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/shared"
)

var _ list.Item = queueItem{}

// queueItem wraps [models.PlaybackItem] to implement [list.Item].
type queueItem struct {
	item models.PlaybackItem
}

func (i queueItem) FilterValue() string { return i.item.Title }
func (i queueItem) Title() string       { return i.item.Title }
func (i queueItem) Description() string {
	desc := i.item.Origin.String()
	if i.item.Artist != "" {
		desc = fmt.Sprintf("%s • %s", i.item.Artist, desc)
	}
	if i.item.DurationHint > 0 {
		desc = fmt.Sprintf("%s • %s", desc, shared.FormatClock(i.item.DurationHint))
	}
	return desc
}

func queueItems(items []models.PlaybackItem) []list.Item {
	out := make([]list.Item, len(items))
	for i, item := range items {
		out[i] = queueItem{item: item}
	}
	return out
}
