package playback

import (
	"context"

	"github.com/zalun/karaoke-engine/internal/models"
)

// SourceKind identifies how a backend should open a source.
type SourceKind int

const (
	SourceEmbed SourceKind = iota // Provider-hosted media by id, no raw URL exposed
	SourceURL                     // Direct stream URL (resolved or external)
	SourceFile                    // Local file path
)

// Source is what the controller hands a backend to load.
type Source struct {
	Kind      SourceKind
	Location  string // URL or file path; empty for SourceEmbed
	MediaID   string // Provider media id; set for SourceEmbed and resolved URLs
	FromCache bool   // Location came from the prefetch cache
}

// BackendEventKind enumerates backend telemetry.
type BackendEventKind int

const (
	BackendReady    BackendEventKind = iota // Source loaded, transport controllable
	BackendTime                             // Position update, Value = seconds
	BackendDuration                         // Duration known, Value = seconds
	BackendEnded                            // Natural end of media
	BackendFault                            // Backend fault, see Fault
)

// BackendEvent is one telemetry message from the active backend.
type BackendEvent struct {
	Kind  BackendEventKind
	Value float64
	Fault *models.FaultSignal
}

// MediaBackend is the playback device the controller drives. The handle is
// exclusive: at most one backend may hold the active stream, and the
// detach/reattach coordinator is the only sanctioned handoff path.
type MediaBackend interface {
	// Load opens a source. Readiness is reported asynchronously via Events.
	Load(ctx context.Context, src Source) error
	Play() error
	Pause() error
	// SeekTo jumps to an absolute position in seconds.
	SeekTo(seconds float64) error
	SetVolume(v float64) error
	SetMuted(muted bool) error
	// Unload releases the device handle so another window may claim it.
	Unload() error
	// Events returns the backend telemetry stream. The channel is closed
	// when the backend shuts down for good.
	Events() <-chan BackendEvent
}
