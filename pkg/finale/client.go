// Package finale provides a client for the Finale Inventory API.
package finale

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the Finale Inventory operations used by this application.
type Client interface {
	// FetchCatalogTo downloads the raw product catalog JSON to path.
	FetchCatalogTo(ctx context.Context, path string) error
	// Ping verifies credentials by fetching the facility list.
	Ping(ctx context.Context) error
}

// Option configures the Finale client.
type Option func(*httpClient)

// WithBaseURL overrides the default https://app.finaleinventory.com base
// URL (for testing or self-hosted instances).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout overrides the default 60s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit overrides the default request rate (2 req/s). Zero or
// negative disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	account   string
	apiKey    string
	apiSecret string
	baseURL   string
	limiter   *rate.Limiter
	http      *http.Client
}

// NewClient creates a Finale client for the given account. API key and
// secret are sent as HTTP basic credentials.
func NewClient(account, apiKey, apiSecret string, opts ...Option) Client {
	c := &httpClient{
		account:   account,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   "https://app.finaleinventory.com",
		limiter:   rate.NewLimiter(2, 1),
		http: &http.Client{
			// Catalog exports can run to tens of megabytes.
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// do executes the request with exponential backoff retries on transient
// failures (429, 500, 502, 503). The response body is open on return so
// large payloads can be streamed.
func (c *httpClient) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
		} else if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
			lastErr = eris.Errorf("finale: status %d: %s", resp.StatusCode, string(body))
		} else {
			return resp, nil
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return nil, lastErr
}

// newRequest builds an authenticated GET for an API path under the account.
func (c *httpClient) newRequest(ctx context.Context, apiPath string) (*http.Request, error) {
	url := fmt.Sprintf("%s/%s/api/%s", c.baseURL, c.account, apiPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "finale: create request")
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *httpClient) FetchCatalogTo(ctx context.Context, path string) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "finale: rate limit")
	}

	req, err := c.newRequest(ctx, "product")
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return eris.Wrap(err, "finale: fetch catalog")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return eris.Errorf("finale: fetch catalog: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return eris.Wrap(err, "finale: create catalog file")
	}
	defer file.Close() //nolint:errcheck

	if _, err := io.Copy(file, resp.Body); err != nil {
		return eris.Wrap(err, "finale: write catalog file")
	}

	return nil
}

func (c *httpClient) Ping(ctx context.Context) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "finale: rate limit")
	}

	req, err := c.newRequest(ctx, "facility")
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return eris.Wrap(err, "finale: ping")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return eris.Errorf("finale: ping: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
