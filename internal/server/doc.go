// Package server provides HTTP routing, middleware, and the playback control
// API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first),
// following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method
// filtering.
//
// # Control API
//
// [ControlHandler] exposes the playback engine over local HTTP: transport
// state, play/pause/seek/volume, queue management, and detach/reattach. The
// daemon command serves it on the configured loopback address so external
// tooling (remote controls, request kiosks) can drive the session without
// touching the TUI.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib
// handler interface and adds routes, allowing handlers to register multiple
// routes to encapsulate route definitions within the implementation.
package server
