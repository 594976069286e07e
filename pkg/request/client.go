package request

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"homescout/pkg/cache"
	"homescout/pkg/tracker"
	"homescout/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("HomeScout Area Explorer (HomeScout/%s)", version.Version)

// StatusError is a non-2xx HTTP response surfaced as an error.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Client handles HTTP requests with caching and per-provider tracking.
// Every successful response may be cached; every attempt is tracked, so
// telemetry reflects retries and endpoint fallback exactly.
type Client struct {
	httpClient *http.Client
	cache      cache.Cacher
	tracker    *tracker.Tracker
}

// New creates a new Client. timeout bounds each individual attempt.
func New(c cache.Cacher, t *tracker.Tracker, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cache:      c,
		tracker:    t,
	}
}

// Get performs a GET request with caching if a key is provided.
func (c *Client) Get(ctx context.Context, u, cacheKey string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, u, nil, nil, cacheKey)
}

// PostForm performs an application/x-www-form-urlencoded POST.
func (c *Client) PostForm(ctx context.Context, u string, form url.Values, cacheKey string) ([]byte, error) {
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	return c.do(ctx, http.MethodPost, u, []byte(form.Encode()), headers, cacheKey)
}

// PostJSON performs a POST with a JSON body and custom headers.
func (c *Client) PostJSON(ctx context.Context, u string, body []byte, headers map[string]string) ([]byte, error) {
	merged := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		merged[k] = v
	}
	return c.do(ctx, http.MethodPost, u, body, merged, "")
}

// ZeroResult records that a well-formed response from u carried no
// elements. Callers invoke it after parsing, since only they can tell an
// empty answer from a transport failure.
func (c *Client) ZeroResult(u string) {
	if parsed, err := url.Parse(u); err == nil {
		c.tracker.TrackAPIZero(NormalizeProvider(parsed.Host))
	}
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, headers map[string]string, cacheKey string) ([]byte, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	provider := NormalizeProvider(parsedURL.Host)

	if cacheKey != "" {
		if val, hit := c.cache.GetCache(ctx, cacheKey); hit {
			c.tracker.TrackCacheHit(provider)
			slog.Debug("Cache Hit", "provider", provider, "key", cacheKey)
			return val, nil
		}
		c.tracker.TrackCacheMiss(provider)
		slog.Debug("Cache Miss", "provider", provider, "key", cacheKey)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", defaultUserAgent)
	}

	respBody, err := c.execute(req)
	if err != nil {
		c.tracker.TrackAPIFailure(provider)
		return nil, err
	}

	c.tracker.TrackAPISuccess(provider)
	if cacheKey != "" {
		if err := c.cache.SetCache(ctx, cacheKey, respBody); err != nil {
			slog.Error("Failed to cache response", "url", u, "error", err)
		}
	}
	return respBody, nil
}

func (c *Client) execute(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.Redacted()}
	}
	return body, nil
}

// NormalizeProvider groups hosts into the logical provider name used for
// tracking and backoff bookkeeping.
func NormalizeProvider(host string) string {
	// Overpass endpoints stay per-host so endpoint fallback is visible
	// in the stats.
	switch {
	case strings.HasSuffix(host, "police.uk"):
		return "police"
	case strings.HasSuffix(host, "postcodes.io"):
		return "postcodes"
	case strings.HasSuffix(host, "traveltimeapp.com"):
		return "traveltime"
	case strings.HasSuffix(host, "googleapis.com"):
		return "google"
	case strings.HasSuffix(host, "telegram.org"):
		return "telegram"
	}
	return host
}
