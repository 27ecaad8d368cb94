package playback

import "github.com/zalun/karaoke-engine/internal/models"

// ErrorClass is the recovery taxonomy for backend faults.
type ErrorClass int

const (
	ClassEmbeddingDisallowed ErrorClass = iota // Provider refused embedding: mark and auto-skip
	ClassStaleURL                              // Cached URL likely expired: one fresh-resolve retry
	ClassNetworkOrDecode                       // Terminal for the item: halt, no auto-advance
	ClassUnsupported                           // Terminal: backend cannot play this media
)

// String returns the string representation of the error class.
func (c ErrorClass) String() string {
	switch c {
	case ClassEmbeddingDisallowed:
		return "embedding_disallowed"
	case ClassStaleURL:
		return "stale_url"
	case ClassNetworkOrDecode:
		return "network_or_decode"
	case ClassUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Classify maps a backend fault onto the recovery taxonomy.
//
// Stale-URL detection is a heuristic: the backend cannot distinguish an
// expired stream URL from a genuine network failure, so a load fault is
// treated as stale only when the failing URL was served from the prefetch
// cache and the item has not already used its single retry. Decode faults
// are never stale; by the time media is decoding the URL was good.
func Classify(sig models.FaultSignal, retried bool) ErrorClass {
	switch sig.Code {
	case models.FaultEmbedBlocked:
		return ClassEmbeddingDisallowed
	case models.FaultUnsupported:
		return ClassUnsupported
	case models.FaultLoad:
		if sig.URLFromCache && !retried {
			return ClassStaleURL
		}
		return ClassNetworkOrDecode
	default:
		return ClassNetworkOrDecode
	}
}
