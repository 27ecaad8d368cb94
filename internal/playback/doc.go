// Package playback implements the playback coordination engine: deciding which
// backend plays an item, prefetching the next item's stream URL, driving the
// active media backend, and recovering from provider-specific failures.
//
// # Core types
//
//  1. [Controller] : The transport state machine. Owns the single live
//     [models.TransportState] and serializes every mutation behind one mutex.
//     Asynchronous work (stream resolution, backend readiness) re-validates
//     item identity and load generation on completion, so results that arrive
//     for a song that is no longer current are discarded instead of applied.
//
//  2. [Prefetcher] : Single-slot cache mapping the upcoming queue item to a
//     resolved URL. A prefetch captures the target item id before the resolver
//     call and stores the result only if the queue head still matches when the
//     call completes. Any head change invalidates the slot proactively.
//
//  3. [Selector] : Chooses the backend per item from the item origin, the
//     configured playback mode, and the session's non-embeddable set. Local
//     items always play from file regardless of mode.
//
//  4. [Classify] : Maps raw backend [models.FaultSignal] values onto the
//     recovery taxonomy. Embedding refusals auto-skip, stale cached URLs get
//     exactly one fresh-resolve retry, everything else halts playback for the
//     current item so a systemic failure cannot cycle through the whole queue.
//
// # Event flow
//
// Subscribers receive [models.Event] values over buffered channels; sends
// never block the engine (slow consumers lose events, they can re-read state).
// The backend reports readiness, time, duration, natural end and faults over
// its own event channel, consumed by [Controller.Run].
package playback
