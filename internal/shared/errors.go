package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Resolver errors
	ErrResolver         = fmt.Errorf("stream resolution failed")
	ErrResolverTimeout  = fmt.Errorf("stream resolution timed out")
	ErrMediaNotFound    = fmt.Errorf("media not found")
	ErrResolverQuota    = fmt.Errorf("resolver quota exceeded")

	// Playback errors
	ErrQueueEmpty          = fmt.Errorf("queue is empty")
	ErrNotReady            = fmt.Errorf("backend not ready")
	ErrNothingPlaying      = fmt.Errorf("nothing is playing")
	ErrEmbeddingDisallowed = fmt.Errorf("embedded playback disallowed by provider")
	ErrStaleURL            = fmt.Errorf("resolved URL is stale")
	ErrDecodeFailure       = fmt.Errorf("media decode failed")
	ErrUnsupportedMedia    = fmt.Errorf("unsupported media")

	// Detach errors
	ErrDetached          = fmt.Errorf("playback is detached, reattach first")
	ErrDetachUnavailable = fmt.Errorf("detach unavailable in current state")
	ErrDetachFailed      = fmt.Errorf("detach failed")
	ErrNotDetached       = fmt.Errorf("playback is not detached")
	ErrWindowClosed      = fmt.Errorf("secondary window closed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
