package models

// EventType represents a playback event type broadcast by the controller.
type EventType int

const (
	EventTrackStarted EventType = iota // A new item reached the playing state
	EventTrackEnded                    // The active item finished naturally
	EventStateChanged                  // Pause/resume/volume/mute changed
	EventProgress                      // Position or duration updated
	EventDetached                      // Playback relocated to a secondary window
	EventReattached                    // Playback returned to the primary window
	EventNotice                        // Transient, dismissible notice (self-healing recovery)
	EventHalted                        // Terminal error for the current item; no auto-advance
	EventQueueEmpty                    // Natural end with nothing left to play
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventStateChanged:
		return "state_changed"
	case EventProgress:
		return "progress"
	case EventDetached:
		return "detached"
	case EventReattached:
		return "reattached"
	case EventNotice:
		return "notice"
	case EventHalted:
		return "halted"
	case EventQueueEmpty:
		return "queue_empty"
	default:
		return "unknown"
	}
}

// Event is a controller event. State is a copy of the transport state at the
// moment the event fired; subscribers never share memory with the controller.
type Event struct {
	Type   EventType
	Item   *PlaybackItem // Item the event concerns (nil for queue_empty)
	State  TransportState
	Notice string // Human-readable text for notice/halted events
	Err    error  // Terminal error for halted events
}
