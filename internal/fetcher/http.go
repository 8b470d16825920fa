// Package fetcher is the shared HTTP client for source collectors: per-host
// rate limiting, fixed request timeouts, and retry on transient failures.
package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/partybase-ng/directory-cli/internal/resilience"
)

// maxBodyBytes caps response reads; directory pages are small.
const maxBodyBytes = 8 << 20

// Options configures the fetcher.
type Options struct {
	UserAgent      string
	Timeout        time.Duration
	RequestsPerSec float64
	MaxRetries     int
}

// Client is a rate-limited HTTP GET client. One limiter per host keeps
// collectors polite toward each source independently.
type Client struct {
	opts     Options
	client   *http.Client
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a fetcher client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 2
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	return &Client{
		opts:     opts,
		client:   &http.Client{Timeout: opts.Timeout},
		limiters: make(map[string]*rate.Limiter),
	}
}

// Get fetches a URL and returns the body. Non-2xx statuses are errors;
// 408/429/5xx are marked transient and retried with backoff.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %s", rawURL)
	}

	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = c.opts.MaxRetries
	cfg.OnRetry = resilience.RetryLogger(u.Host, "get")

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter(u.Host).Wait(ctx); err != nil {
			return nil, err
		}
		return c.getOnce(ctx, rawURL)
	})
}

// GetJSON fetches a URL and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return eris.Wrapf(err, "fetcher: decode json from %s", rawURL)
	}
	return nil
}

func (c *Client) getOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: build request %s", rawURL)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := eris.Errorf("fetcher: %s returned status %d", rawURL, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read body %s", rawURL)
	}
	return body, nil
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.opts.RequestsPerSec), 1)
		c.limiters[host] = l
	}
	return l
}
