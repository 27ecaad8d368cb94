package playback

import (
	"sync"

	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/shared"
)

// Backend identifies the playback strategy chosen for one item.
type Backend int

const (
	BackendEmbedded    Backend = iota // Provider-hosted playback by media id
	BackendResolvedURL                // Direct playback of a resolver-supplied URL
	BackendLocalFile                  // Direct playback of a local file
)

// String returns the string representation of the backend choice.
func (b Backend) String() string {
	switch b {
	case BackendEmbedded:
		return "embedded"
	case BackendResolvedURL:
		return "resolved-url"
	case BackendLocalFile:
		return "local-file"
	default:
		return "unknown"
	}
}

// SelectBackend is the pure selection rule: local items always play from
// file; YouTube items follow the configured mode; external URLs play direct.
func SelectBackend(origin models.Origin, mode shared.PlaybackMode) Backend {
	switch origin {
	case models.OriginLocal:
		return BackendLocalFile
	case models.OriginYouTube:
		if mode == shared.ModeEmbedded {
			return BackendEmbedded
		}
		return BackendResolvedURL
	default:
		return BackendResolvedURL
	}
}

// Selector layers the session's non-embeddable set over [SelectBackend].
// It is re-evaluated on every load and caches nothing.
type Selector struct {
	mode          func() shared.PlaybackMode
	nonEmbeddable *NonEmbeddableSet
}

// NewSelector creates a selector reading the live playback mode through the
// given accessor.
func NewSelector(mode func() shared.PlaybackMode, ne *NonEmbeddableSet) *Selector {
	return &Selector{mode: mode, nonEmbeddable: ne}
}

// For chooses the backend for an item. An item whose media id was marked
// non-embeddable this session falls back to resolved-URL playback even in
// embedded mode.
func (s *Selector) For(item models.PlaybackItem) Backend {
	b := SelectBackend(item.Origin, s.mode())
	if b == BackendEmbedded && s.nonEmbeddable.Contains(item.MediaRef) {
		return BackendResolvedURL
	}
	return b
}

// NonEmbeddableSet tracks media identifiers the provider refused to play
// embedded. Grows monotonically; cleared only by process restart.
type NonEmbeddableSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewNonEmbeddableSet creates an empty set.
func NewNonEmbeddableSet() *NonEmbeddableSet {
	return &NonEmbeddableSet{ids: make(map[string]struct{})}
}

// Add marks a media identifier as non-embeddable for the rest of the session.
func (n *NonEmbeddableSet) Add(mediaID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids[mediaID] = struct{}{}
}

// Contains reports whether the identifier was marked non-embeddable.
func (n *NonEmbeddableSet) Contains(mediaID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.ids[mediaID]
	return ok
}

// Len returns the number of marked identifiers.
func (n *NonEmbeddableSet) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.ids)
}
