package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// HTTPClientConfig configures the HTTP client shared by source clients.
type HTTPClientConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration

	// RateLimit is the sustained requests-per-second budget. PubMed
	// without an API key allows 3 requests per second and arXiv asks
	// for the same politeness rate, so 3 is the default.
	RateLimit float64

	// BurstSize is the token bucket burst allowance.
	BurstSize int

	// MaxRetries is how many additional attempts follow a retryable failure.
	MaxRetries int

	// RetryDelay is the wait between retries when the server gives no hint.
	RetryDelay time.Duration

	// UserAgent is sent when the request carries none.
	UserAgent string
}

func (cfg *HTTPClientConfig) applyDefaults() {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 3
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 3
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Helixir-PaperEnrichment/1.0"
	}
}

// HTTPClient is a rate-limited http.Client for the external paper APIs.
// Every attempt first waits on the token bucket; 429 responses (honoring
// Retry-After) and 5xx responses are retried. Safe for concurrent use.
type HTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
	cfg     HTTPClientConfig
}

// NewHTTPClient builds an HTTPClient, filling zero config fields with defaults.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	cfg.applyDefaults()
	return &HTTPClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.BurstSize),
		cfg:     cfg,
	}
}

// Do executes req with rate limiting and retries.
//
// The request body is not replayed across retries. Both source clients
// only issue GETs, so nothing here sets GetBody.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	ctx := req.Context()

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil, err
		case err != nil:
			lastErr = fmt.Errorf("request failed: %w", err)
		case retryableStatus(resp.StatusCode):
			delay := retryAfter(resp, c.cfg.RetryDelay)
			drain(resp)
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			if attempt >= c.cfg.MaxRetries {
				return nil, fmt.Errorf("retries exhausted after %d attempts: %w", attempt+1, lastErr)
			}
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		default:
			return resp, nil
		}

		if attempt >= c.cfg.MaxRetries {
			return nil, lastErr
		}
		if err := sleep(ctx, c.cfg.RetryDelay); err != nil {
			return nil, err
		}
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
}

// retryAfter reads the Retry-After header, accepting both delta-seconds
// and HTTP-date forms, and falls back to def.
func retryAfter(resp *http.Response, def time.Duration) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return def
	}
	if secs, err := strconv.ParseInt(h, 10, 64); err == nil {
		if secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return def
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return def
}

func drain(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
