// CLAUDE:SUMMARY Rate-limited HTTP client shared by adapters and probes.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hazyhaar/worldpulse/horosafe"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "worldpulse/1.0 (+https://github.com/hazyhaar/worldpulse)"
	// defaultMaxBytes caps JSON API responses. CSV downloads pass their own
	// larger cap via GetBytes.
	defaultMaxBytes = horosafe.MaxResponseBody
)

// Client wraps http.Client with a token-bucket rate limiter and bounded
// body reads. One Client is shared across all adapters so the process as a
// whole stays polite toward upstreams.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests use
// httptest servers through this).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit sets the outbound request rate. Default is 2 req/s with a
// burst of 4.
func WithRateLimit(r rate.Limit, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// NewClient builds a Client with sane defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:      &http.Client{Timeout: defaultTimeout},
		limiter:   rate.NewLimiter(rate.Limit(2), 4),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetBytes performs a rate-limited GET and returns at most maxBytes of the
// body. Non-2xx statuses and transport failures map to
// ErrUpstreamUnavailable.
func (c *Client) GetBytes(ctx context.Context, url string, maxBytes int64) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrUpstreamUnavailable, url, resp.StatusCode)
	}

	body, err := horosafe.LimitedReadAll(resp.Body, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return body, nil
}

// GetJSON performs a GET and unmarshals the JSON body into out. Parse
// failures map to ErrMalformedResponse.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.GetBytes(ctx, url, defaultMaxBytes)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
