package services

import (
	"context"
	"fmt"

	"github.com/zalun/karaoke-engine/internal/shared"
)

// Resolver turns a media identifier into a time-limited playable URL.
type Resolver interface {
	// Resolve fetches a playable URL for the given media identifier.
	// The returned URL expires; callers must not store it beyond the
	// single upcoming playback it was resolved for.
	Resolve(ctx context.Context, mediaID string) (*ResolvedStream, error)
}

// ResolvedStream is a resolver result.
type ResolvedStream struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in,omitempty"` // Seconds, 0 when the extractor gives no hint
}

// ResolverErrorKind categorizes resolver failures.
type ResolverErrorKind int

const (
	ResolveNetwork  ResolverErrorKind = iota // Transport failure or extractor fault
	ResolveQuota                             // Extractor rate limited / quota exhausted
	ResolveNotFound                          // Identifier does not resolve to media
)

// ResolverError is the typed failure returned by resolver implementations.
type ResolverError struct {
	Kind    ResolverErrorKind
	MediaID string
	Detail  string
}

func (e *ResolverError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("resolve %s: %s", e.MediaID, e.Detail)
	}
	return fmt.Sprintf("resolve %s: %v", e.MediaID, e.Unwrap())
}

// Unwrap maps the failure kind onto the shared sentinel errors.
func (e *ResolverError) Unwrap() error {
	switch e.Kind {
	case ResolveNotFound:
		return shared.ErrMediaNotFound
	case ResolveQuota:
		return shared.ErrResolverQuota
	default:
		return shared.ErrResolver
	}
}
