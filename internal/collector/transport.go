package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// HTTPOptions configures the shared HTTP plumbing of a source.
type HTTPOptions struct {
	Proxy     string
	Timeout   time.Duration
	RPS       float64 // 0 disables rate limiting
	Burst     int
	UserAgent string
}

// HTTPClient is an http.Client with optional proxy and token-bucket rate limit.
type HTTPClient struct {
	Client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewHTTPClient builds a client the way every source needs it.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	transport := &http.Transport{}
	if opts.Proxy != "" {
		if u, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0"
	}
	c := &HTTPClient{
		Client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		userAgent: opts.UserAgent,
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return c
}

// get performs a GET and returns the body of a 2xx response. Every failure
// here is a TransportError.
func (c *HTTPClient) get(ctx context.Context, source, endpoint, accept string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Source: source, Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Source: source, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, &TransportError{Source: source, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Source: source, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Source: source, Status: resp.StatusCode}
	}
	return body, nil
}
