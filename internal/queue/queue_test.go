package queue

import (
	"testing"

	"github.com/zalun/karaoke-engine/internal/models"
)

func item(id string) models.PlaybackItem {
	return models.PlaybackItem{ID: id, Title: "song " + id, Origin: models.OriginYouTube, MediaRef: id}
}

func TestList(t *testing.T) {
	t.Run("PeekNext", func(t *testing.T) {
		t.Run("returns nil when empty", func(t *testing.T) {
			if got := NewList().PeekNext(); got != nil {
				t.Errorf("expected nil, got %+v", got)
			}
		})

		t.Run("returns the head without consuming", func(t *testing.T) {
			l := NewList()
			l.Add(item("a"))
			l.Add(item("b"))

			if got := l.PeekNext(); got == nil || got.ID != "a" {
				t.Fatalf("expected head a, got %+v", got)
			}
			if l.Len() != 2 {
				t.Errorf("peek must not consume, len = %d", l.Len())
			}
		})
	})

	t.Run("Advance", func(t *testing.T) {
		t.Run("consumes in queue order", func(t *testing.T) {
			l := NewList()
			l.Add(item("a"))
			l.Add(item("b"))

			if got := l.Advance(); got.ID != "a" {
				t.Errorf("expected a, got %s", got.ID)
			}
			if got := l.Advance(); got.ID != "b" {
				t.Errorf("expected b, got %s", got.ID)
			}
			if got := l.Advance(); got != nil {
				t.Errorf("expected nil on empty queue, got %+v", got)
			}
		})

		t.Run("does not fire head-change callbacks", func(t *testing.T) {
			l := NewList()
			l.Add(item("a"))
			l.Add(item("b"))

			fired := 0
			l.Subscribe(func() { fired++ })
			l.Advance()
			if fired != 0 {
				t.Errorf("advance must not notify, fired %d times", fired)
			}
		})
	})

	t.Run("Subscribe", func(t *testing.T) {
		t.Run("fires when the first item lands in an empty queue", func(t *testing.T) {
			l := NewList()
			fired := 0
			l.Subscribe(func() { fired++ })

			l.Add(item("a"))
			l.Add(item("b")) // appending behind a head is not a head change
			if fired != 1 {
				t.Errorf("expected 1 notification, got %d", fired)
			}
		})

		t.Run("fires on head removal", func(t *testing.T) {
			l := NewList()
			l.Add(item("a"))
			l.Add(item("b"))

			fired := 0
			l.Subscribe(func() { fired++ })

			l.Remove("b") // tail removal, head unchanged
			if fired != 0 {
				t.Fatalf("tail removal must not notify, fired %d", fired)
			}
			l.Remove("a")
			if fired != 1 {
				t.Errorf("expected notification on head removal, fired %d", fired)
			}
		})

		t.Run("fires on reorder to front", func(t *testing.T) {
			l := NewList()
			l.Add(item("a"))
			l.Add(item("b"))
			l.Add(item("c"))

			fired := 0
			l.Subscribe(func() { fired++ })

			l.MoveToFront("c")
			if fired != 1 {
				t.Errorf("expected notification on reorder, fired %d", fired)
			}
			if got := l.PeekNext(); got.ID != "c" {
				t.Errorf("expected head c, got %s", got.ID)
			}

			l.MoveToFront("c") // already at the head, no change
			if fired != 1 {
				t.Errorf("no-op reorder must not notify, fired %d", fired)
			}
		})

		t.Run("fires on clear", func(t *testing.T) {
			l := NewList()
			l.Add(item("a"))

			fired := 0
			l.Subscribe(func() { fired++ })
			l.Clear()
			if fired != 1 {
				t.Errorf("expected notification on clear, fired %d", fired)
			}

			l.Clear() // already empty
			if fired != 1 {
				t.Errorf("clearing an empty queue must not notify, fired %d", fired)
			}
		})
	})

	t.Run("Remove returns false for unknown id", func(t *testing.T) {
		if NewList().Remove("nope") {
			t.Error("expected false")
		}
	})

	t.Run("Items returns an ordered snapshot", func(t *testing.T) {
		l := NewList()
		l.Add(item("a"))
		l.Add(item("b"))

		items := l.Items()
		if len(items) != 2 || items[0].ID != "a" || items[1].ID != "b" {
			t.Errorf("unexpected snapshot %+v", items)
		}

		items[0].ID = "mutated"
		if l.PeekNext().ID != "a" {
			t.Error("snapshot must not alias queue storage")
		}
	})
}
