package models

import (
	"fmt"
	"strings"
)

// Origin identifies where a playback item's media lives.
type Origin int

const (
	OriginYouTube  Origin = iota // Remote video identified by a YouTube video id
	OriginLocal                  // File on the local filesystem
	OriginExternal               // Direct URL to an external stream
)

// String returns the string representation of the origin.
func (o Origin) String() string {
	switch o {
	case OriginYouTube:
		return "youtube"
	case OriginLocal:
		return "local"
	case OriginExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ParseOrigin parses a string produced by [Origin.String].
func ParseOrigin(s string) (Origin, error) {
	switch strings.ToLower(s) {
	case "youtube":
		return OriginYouTube, nil
	case "local":
		return OriginLocal, nil
	case "external":
		return OriginExternal, nil
	default:
		return 0, fmt.Errorf("unknown origin %q", s)
	}
}

// InferOrigin guesses the origin of a raw media reference and returns the
// normalized reference alongside it.
//
// Rules: a "yt:" prefix or bare YouTube video id maps to [OriginYouTube],
// an http(s) URL maps to [OriginExternal], everything else is treated as a
// local file path.
func InferOrigin(ref string) (Origin, string) {
	if id, ok := strings.CutPrefix(ref, "yt:"); ok {
		return OriginYouTube, id
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return OriginExternal, ref
	}
	if looksLikeVideoID(ref) {
		return OriginYouTube, ref
	}
	return OriginLocal, ref
}

// looksLikeVideoID reports whether ref has the shape of a YouTube video id:
// exactly 11 characters from the id alphabet and no path separators.
func looksLikeVideoID(ref string) bool {
	if len(ref) != 11 {
		return false
	}
	for _, r := range ref {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// PlaybackItem represents one enqueued song. Items are immutable once
// enqueued; identity is ID.
type PlaybackItem struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Artist       string  `json:"artist,omitempty"`
	Origin       Origin  `json:"origin"`
	MediaRef     string  `json:"media_ref"`               // Video id for YouTube, file path for Local, URL for External
	DurationHint float64 `json:"duration_hint,omitempty"` // Seconds, 0 when unknown
}

// Validate checks that the item carries enough data to be playable.
func (i PlaybackItem) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("playback item missing id")
	}
	if i.MediaRef == "" {
		return fmt.Errorf("playback item %s missing media reference", i.ID)
	}
	return nil
}

// TransportState is the live transport truth. Exactly one exists per process
// and it is mutated only through controller operations; the UI and the
// detached window observe it but never write it.
type TransportState struct {
	CurrentItem *PlaybackItem `json:"current_item"`
	ResolvedURL string        `json:"resolved_url,omitempty"`
	IsPlaying   bool          `json:"is_playing"`
	IsLoading   bool          `json:"is_loading"`
	IsDetached  bool          `json:"is_detached"`
	Volume      float64       `json:"volume"` // 0.0 to 1.0
	IsMuted     bool          `json:"is_muted"`
	CurrentTime float64       `json:"current_time"` // Seconds
	Duration    float64       `json:"duration"`     // Seconds, 0 until the backend reports it
	PendingSeek *float64      `json:"pending_seek,omitempty"`
}

// TimeRemaining returns seconds until the current item ends, or 0 when the
// duration is unknown.
func (t TransportState) TimeRemaining() float64 {
	if t.Duration <= 0 {
		return 0
	}
	if rem := t.Duration - t.CurrentTime; rem > 0 {
		return rem
	}
	return 0
}

// DetachSnapshot is the minimal state handed to a secondary window when
// playback relocates there.
type DetachSnapshot struct {
	Source    string  `json:"source"` // Resolved URL or local file path
	Title     string  `json:"title"`
	IsPlaying bool    `json:"is_playing"`
	Position  float64 `json:"position"` // Seconds
	Volume    float64 `json:"volume"`
	IsMuted   bool    `json:"is_muted"`
}

// DetachedSessionHandle tracks a live detached window from the primary side.
// Created on detach, destroyed on reattach or window close.
type DetachedSessionHandle struct {
	WindowID          string  `json:"window_id"`
	LastKnownPosition float64 `json:"last_known_position"`
	LastKnownDuration float64 `json:"last_known_duration"`
}

// CommandKind enumerates commands relayed to a detached window.
type CommandKind string

const (
	CmdPlay   CommandKind = "play"
	CmdPause  CommandKind = "pause"
	CmdSeek   CommandKind = "seek"
	CmdVolume CommandKind = "volume"
	CmdMute   CommandKind = "mute"
)

// RemoteCommand is a transport command relayed across the window boundary.
type RemoteCommand struct {
	Kind  CommandKind `json:"kind"`
	Value float64     `json:"value,omitempty"` // Seek target or volume level
	Flag  bool        `json:"flag,omitempty"`  // Mute on/off
}

// RemoteEventKind enumerates telemetry flowing back from a detached window.
type RemoteEventKind string

const (
	RemoteReady    RemoteEventKind = "ready"
	RemoteTime     RemoteEventKind = "timeupdate"
	RemoteDuration RemoteEventKind = "durationchange"
	RemoteEnded    RemoteEventKind = "ended"
	RemoteClosed   RemoteEventKind = "closed"
	RemoteFault    RemoteEventKind = "fault"
)

// RemoteEvent is telemetry from a detached window. The primary process folds
// these into the shared [TransportState]; the window never writes state
// directly.
type RemoteEvent struct {
	Kind  RemoteEventKind `json:"kind"`
	Value float64         `json:"value,omitempty"`
	Fault *FaultSignal    `json:"fault,omitempty"`
}

// FaultCode is the raw fault category a backend reports. Codes are
// backend-shaped; the error classifier maps them onto recovery policy.
type FaultCode int

const (
	FaultLoad         FaultCode = iota // Network or source load failure
	FaultEmbedBlocked                  // Provider refused embedded playback
	FaultDecode                        // Media decode/format failure mid-stream
	FaultUnsupported                   // Backend cannot play this media at all
)

// String returns the string representation of the fault code.
func (c FaultCode) String() string {
	switch c {
	case FaultLoad:
		return "load"
	case FaultEmbedBlocked:
		return "embed_blocked"
	case FaultDecode:
		return "decode"
	case FaultUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// FaultSignal is a backend fault report. URLFromCache records whether the
// failing URL was served from the prefetch cache, which is the (heuristic)
// input for stale-URL classification.
type FaultSignal struct {
	Code         FaultCode `json:"code"`
	MediaID      string    `json:"media_id,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	URLFromCache bool      `json:"url_from_cache,omitempty"`
}
