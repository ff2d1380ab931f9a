// Package shopify provides a client for the Shopify Admin REST API.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Client defines the Shopify Admin operations used by this application.
type Client interface {
	// ListAllVariants returns every product variant in the store, following
	// Link-header pagination until the last page.
	ListAllVariants(ctx context.Context) ([]Variant, error)
	// UpdateInventoryCost sets the per-unit cost on an inventory item.
	UpdateInventoryCost(ctx context.Context, inventoryItemID int64, cost decimal.Decimal) error
	// Ping verifies credentials by fetching the shop resource and returns
	// the shop name.
	Ping(ctx context.Context) (string, error)
}

// Variant is the slice of a product variant this application reads. Cost
// lives on the inventory item, so InventoryItemID is kept for update
// routing.
type Variant struct {
	ID              int64  `json:"id"`
	SKU             string `json:"sku"`
	InventoryItemID int64  `json:"inventory_item_id"`
}

type product struct {
	ID       int64     `json:"id"`
	Variants []Variant `json:"variants"`
}

type productsResponse struct {
	Products []product `json:"products"`
}

type shopResponse struct {
	Shop struct {
		Name string `json:"name"`
	} `json:"shop"`
}

type inventoryItemPayload struct {
	InventoryItem inventoryItem `json:"inventory_item"`
}

type inventoryItem struct {
	ID   int64  `json:"id"`
	Cost string `json:"cost"`
}

// Option configures the Shopify client.
type Option func(*httpClient)

// WithBaseURL overrides the https://{shop}.myshopify.com base URL (for
// testing).
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

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit overrides the default request rate (2 req/s, the REST
// admin bucket for standard plans). Zero or negative disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithAPIVersion pins a specific Admin API version.
func WithAPIVersion(v string) Option {
	return func(c *httpClient) {
		c.apiVersion = v
	}
}

// WithPageSize sets the products page size (Shopify caps it at 250).
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

type httpClient struct {
	accessToken string
	baseURL     string
	apiVersion  string
	pageSize    int
	limiter     *rate.Limiter
	http        *http.Client
}

// NewClient creates a Shopify Admin client for the given shop subdomain.
func NewClient(shop, accessToken string, opts ...Option) Client {
	c := &httpClient{
		accessToken: accessToken,
		baseURL:     fmt.Sprintf("https://%s.myshopify.com", shop),
		apiVersion:  "2024-07",
		pageSize:    250,
		limiter:     rate.NewLimiter(2, 1),
		http: &http.Client{
			Timeout: 30 * time.Second,
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

// retryAfter parses the Retry-After header, which Shopify sends with
// fractional seconds on 429 responses.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// retryDo executes an HTTP request with exponential backoff retries on
// transient failures (429, 500, 502, 503), honoring Retry-After on 429.
// Returns the response body, status code, and headers on success, or the
// last error after exhausting retries.
func (c *httpClient) retryDo(ctx context.Context, req *http.Request) ([]byte, int, http.Header, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retryReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, 0, nil, eris.Wrap(err, "shopify: rewind request body")
			}
			retryReq.Body = body
		}

		resp, err := c.http.Do(retryReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, nil, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, nil, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, nil, eris.Wrap(readErr, "shopify: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("shopify: status %d: %s", resp.StatusCode, string(body))
			delay := backoff
			if ra := retryAfter(resp.Header); ra > 0 {
				delay = ra
			}
			select {
			case <-ctx.Done():
				return nil, 0, nil, ctx.Err()
			case <-time.After(delay):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, resp.Header, nil
	}

	return nil, 0, nil, lastErr
}

// get performs a rate-limited GET against an absolute URL.
func (c *httpClient) get(ctx context.Context, url string) ([]byte, int, http.Header, error) {
	if err := c.wait(ctx); err != nil {
		return nil, 0, nil, eris.Wrap(err, "shopify: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, nil, eris.Wrap(err, "shopify: create request")
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Accept", "application/json")

	return c.retryDo(ctx, req)
}

var nextLinkRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// nextPageURL extracts the rel="next" URL from a Link header, or returns
// "" on the last page.
func nextPageURL(link string) string {
	m := nextLinkRe.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}

func (c *httpClient) ListAllVariants(ctx context.Context) ([]Variant, error) {
	pageURL := fmt.Sprintf("%s/admin/api/%s/products.json?limit=%d&fields=id,variants",
		c.baseURL, c.apiVersion, c.pageSize)

	var variants []Variant
	for pageURL != "" {
		body, statusCode, header, err := c.get(ctx, pageURL)
		if err != nil {
			return nil, eris.Wrap(err, "shopify: list products")
		}
		if statusCode != http.StatusOK {
			return nil, eris.Errorf("shopify: list products: unexpected status %d: %s", statusCode, string(body))
		}

		var page productsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, eris.Wrap(err, "shopify: unmarshal products page")
		}
		for _, p := range page.Products {
			variants = append(variants, p.Variants...)
		}

		pageURL = nextPageURL(header.Get("Link"))
	}

	return variants, nil
}

func (c *httpClient) UpdateInventoryCost(ctx context.Context, inventoryItemID int64, cost decimal.Decimal) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "shopify: rate limit")
	}

	payload, err := json.Marshal(inventoryItemPayload{
		InventoryItem: inventoryItem{ID: inventoryItemID, Cost: cost.StringFixed(2)},
	})
	if err != nil {
		return eris.Wrap(err, "shopify: marshal inventory item")
	}

	url := fmt.Sprintf("%s/admin/api/%s/inventory_items/%d.json", c.baseURL, c.apiVersion, inventoryItemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "shopify: create request")
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	body, statusCode, _, err := c.retryDo(ctx, req)
	if err != nil {
		return eris.Wrapf(err, "shopify: update inventory item %d", inventoryItemID)
	}
	if statusCode != http.StatusOK {
		return eris.Errorf("shopify: update inventory item %d: unexpected status %d: %s",
			inventoryItemID, statusCode, string(body))
	}

	return nil
}

func (c *httpClient) Ping(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/admin/api/%s/shop.json", c.baseURL, c.apiVersion)
	body, statusCode, _, err := c.get(ctx, url)
	if err != nil {
		return "", eris.Wrap(err, "shopify: fetch shop")
	}
	if statusCode != http.StatusOK {
		return "", eris.Errorf("shopify: fetch shop: unexpected status %d: %s", statusCode, string(body))
	}

	var result shopResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", eris.Wrap(err, "shopify: unmarshal shop")
	}

	return result.Shop.Name, nil
}
