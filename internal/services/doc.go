// Package services defines the [Resolver] interface for stream resolution and
// implements it against the local resolver sidecar.
//
// # Resolver Interface
//
// A resolver turns a media identifier into a short-lived playable URL. It is
// fallible and network-bound and performs no caching of its own; the single-slot
// prefetch cache in the playback package is the only cache in front of it.
//
// # Sidecar Implementation
//
// [StreamResolver] communicates with the extraction sidecar (a yt-dlp wrapper)
// over HTTP. Requests are paced with a [rate.Limiter] so a misbehaving queue
// cannot hammer the extractor, and every call carries a context deadline.
//
// # Error Handling
//
// Failures surface as [*ResolverError] carrying the failure kind. The error
// wraps the matching sentinel from the shared package, so callers can branch
// with errors.Is:
//   - [shared.ErrMediaNotFound] : The identifier does not resolve to media
//   - [shared.ErrResolverQuota] : The extractor is rate limited or quota bound
//   - [shared.ErrResolver] : Network failure or extractor fault
package services
