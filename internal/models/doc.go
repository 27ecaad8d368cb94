// Package models defines the domain entities shared by the playback coordination engine.
//
// The package contains three categories of types:
//
// 1. Queue entities: what the host application enqueues
//   - [PlaybackItem] : An immutable queued song with its media reference
//   - [Origin] : Where the media lives (YouTube, local disk, external URL)
//
// 2. Transport state: the single source of truth for playback
//   - [TransportState] : Current item, flags, position, volume; owned exclusively by the playback controller
//   - [DetachSnapshot] : The minimal transport snapshot handed to a secondary window on detach
//
// 3. Cross-window protocol and telemetry
//   - [RemoteCommand] / [RemoteEvent] : Command/event pairs relayed between the primary process and a detached window
//   - [FaultSignal] : A backend fault report, input to the error classifier
//   - [Event] : Controller events broadcast to subscribers (UI, overlays, media keys)
//
// All types are plain data. Identity of a [PlaybackItem] is its ID; two items with
// the same media reference but different IDs are distinct queue entries.
package models
