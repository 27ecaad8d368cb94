// Stream resolver [Resolver] implementation
//
// Communicates with the extraction sidecar over HTTP. The sidecar wraps
// yt-dlp and exposes GET /api/resolve returning a direct stream URL.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const defaultResolverBaseURL string = "http://localhost:8090"

// StreamResolver implements [Resolver] against the extraction sidecar.
type StreamResolver struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// StreamResolverOpts configures a [StreamResolver].
type StreamResolverOpts struct {
	BaseURL    string
	RateLimit  float64 // Requests per second, defaults to 2
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewStreamResolver creates a resolver client for the sidecar at baseURL.
func NewStreamResolver(opts StreamResolverOpts) *StreamResolver {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultResolverBaseURL
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Timeout > 0 {
		opts.HTTPClient.Timeout = opts.Timeout
	}

	return &StreamResolver{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
	}
}

// Resolve fetches a playable URL for mediaID from the sidecar.
func (s *StreamResolver) Resolve(ctx context.Context, mediaID string) (*ResolvedStream, error) {
	if mediaID == "" {
		return nil, &ResolverError{Kind: ResolveNotFound, Detail: "empty media id"}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &ResolverError{Kind: ResolveNetwork, MediaID: mediaID, Detail: err.Error()}
	}

	endpoint := fmt.Sprintf("%s/api/resolve?%s", s.baseURL, url.Values{"media_id": {mediaID}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ResolverError{Kind: ResolveNetwork, MediaID: mediaID, Detail: err.Error()}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &ResolverError{Kind: ResolveNetwork, MediaID: mediaID, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)

		kind := ResolveNetwork
		switch resp.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			kind = ResolveNotFound
		case http.StatusTooManyRequests, http.StatusForbidden:
			kind = ResolveQuota
		}
		if errResp.Detail == "" {
			errResp.Detail = fmt.Sprintf("sidecar returned %d", resp.StatusCode)
		}
		return nil, &ResolverError{Kind: kind, MediaID: mediaID, Detail: errResp.Detail}
	}

	var stream ResolvedStream
	if err := json.NewDecoder(resp.Body).Decode(&stream); err != nil {
		return nil, &ResolverError{Kind: ResolveNetwork, MediaID: mediaID, Detail: fmt.Sprintf("decode response: %v", err)}
	}
	if stream.URL == "" {
		return nil, &ResolverError{Kind: ResolveNotFound, MediaID: mediaID, Detail: "sidecar returned no url"}
	}

	return &stream, nil
}

var _ Resolver = (*StreamResolver)(nil)
