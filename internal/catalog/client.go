// Package catalog talks to the retailer's REST API and normalizes its loosely
// typed product and category records into the localized view-models in core.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"roastery/internal/core"
	"roastery/internal/observability"
)

const maxBodySize = 10 * 1024 * 1024 // 10 MB

// BaseURLSource supplies the API origin for each request. The image resolver
// implements it, so the client follows the same region selection.
type BaseURLSource interface {
	APIBase() string
}

// StaticBaseURL is a BaseURLSource that never changes.
type StaticBaseURL string

func (s StaticBaseURL) APIBase() string {
	return strings.TrimRight(string(s), "/")
}

// ClientConfig holds catalog API client configuration.
type ClientConfig struct {
	// PageSize is requested per product list page (default: 50)
	PageSize int
	// MaxPages bounds product list pagination (default: 20)
	MaxPages int
	// IncludeInactive is passed through to the list endpoints
	IncludeInactive bool

	// Retry configuration
	MaxRetries     int           // Maximum number of retry attempts (default: 2)
	InitialBackoff time.Duration // Initial backoff duration (default: 250ms)
	MaxBackoff     time.Duration // Maximum backoff duration (default: 5s)
	BackoffFactor  float64       // Backoff multiplier (default: 2.0)

	Breaker BreakerConfig
}

// BreakerConfig holds circuit breaker settings
type BreakerConfig struct {
	// MaxRequests allowed through while half-open
	MaxRequests uint32
	// Interval is the cyclic period after which closed-state counts reset
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing
	Timeout time.Duration
	// FailureThreshold is the failure ratio that trips the breaker
	FailureThreshold float64
	// MinRequests before the failure ratio is evaluated
	MinRequests uint32
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PageSize:       50,
		MaxPages:       20,
		MaxRetries:     2,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		Breaker: BreakerConfig{
			MaxRequests:      3,
			Interval:         30 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 0.6,
			MinRequests:      5,
		},
	}
}

// Client reads products and categories from the catalog API.
type Client struct {
	httpClient *http.Client
	base       BaseURLSource
	config     ClientConfig
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates a catalog client. Zero config fields take their defaults,
// except MaxRetries where zero disables retries.
func NewClient(httpClient *http.Client, base BaseURLSource, config ClientConfig) *Client {
	def := DefaultClientConfig()
	if config.PageSize <= 0 {
		config.PageSize = def.PageSize
	}
	if config.MaxPages <= 0 {
		config.MaxPages = def.MaxPages
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = def.InitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = def.MaxBackoff
	}
	if config.BackoffFactor < 1 {
		config.BackoffFactor = def.BackoffFactor
	}
	if config.Breaker == (BreakerConfig{}) {
		config.Breaker = def.Breaker
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	bc := config.Breaker
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "catalog-api",
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= bc.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				observability.CatalogBreakerOpen.Set(1)
			} else {
				observability.CatalogBreakerOpen.Set(0)
			}
		},
		// Client errors say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			var catErr *core.CatalogError
			if errors.As(err, &catErr) {
				return catErr.Type == core.ErrorTypeNotFound || catErr.Type == core.ErrorTypeInvalidRequest
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		httpClient: httpClient,
		base:       base,
		config:     config,
		breaker:    breaker,
	}
}

// ListProducts fetches every product list page. It stops once totalCount
// items were seen, a page comes back empty, or MaxPages is reached.
func (c *Client) ListProducts(ctx context.Context) ([]RawProduct, error) {
	var all []RawProduct
	for page := 1; page <= c.config.MaxPages; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("pageSize", strconv.Itoa(c.config.PageSize))
		q.Set("includeInactive", strconv.FormatBool(c.config.IncludeInactive))

		body, err := c.get(ctx, "/products", q)
		if err != nil {
			return nil, err
		}

		env := parseEnvelope(body)
		for _, item := range env.items {
			all = append(all, RawProduct(item.Raw))
		}

		switch {
		case env.bare, len(env.items) == 0:
			return all, nil
		case env.total > 0 && len(all) >= env.total:
			return all, nil
		case env.total == 0 && len(env.items) < c.config.PageSize:
			return all, nil
		}
	}

	slog.Warn("product list pagination stopped at page limit", "max_pages", c.config.MaxPages, "items", len(all))
	return all, nil
}

// GetProduct fetches one product's detail record.
func (c *Client) GetProduct(ctx context.Context, id string) (RawProduct, error) {
	if id == "" {
		return nil, core.NewInvalidRequestError("product id is required", nil)
	}
	body, err := c.get(ctx, "/products/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	// Some deployments wrap single records as {"data": {...}}.
	res := gjson.ParseBytes(body)
	if data := res.Get("data"); data.IsObject() {
		return RawProduct(data.Raw), nil
	}
	if !res.IsObject() {
		return nil, core.NewUpstreamError(http.StatusBadGateway, "product detail is not an object", nil)
	}
	return RawProduct(body), nil
}

// ListCategories fetches the category list.
func (c *Client) ListCategories(ctx context.Context) ([]RawCategory, error) {
	q := url.Values{}
	q.Set("includeInactive", strconv.FormatBool(c.config.IncludeInactive))

	body, err := c.get(ctx, "/categories", q)
	if err != nil {
		return nil, err
	}

	env := parseEnvelope(body)
	out := make([]RawCategory, 0, len(env.items))
	for _, item := range env.items {
		out = append(out, RawCategory(item.Raw))
	}
	return out, nil
}

// get executes a GET with retries, inside the circuit breaker.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.getWithRetries(ctx, path, query)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, core.NewUnavailableError("catalog API temporarily unavailable", err)
		}
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Client) getWithRetries(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	maxAttempts := c.config.MaxRetries + 1

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		status, body, err := c.doRequest(ctx, path, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if status == http.StatusOK {
			return body, nil
		}

		lastErr = core.ParseUpstreamError(status, body, nil)
		if !isRetryable(status) {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	target := c.base.APIBase() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, core.NewInvalidRequestError("failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if id := core.GetRequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, core.NewUpstreamError(http.StatusBadGateway, "failed to send request: "+err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return 0, nil, core.NewUpstreamError(http.StatusBadGateway, "failed to read response: "+err.Error(), err)
	}
	if len(raw) > maxBodySize {
		return 0, nil, core.NewUpstreamError(http.StatusBadGateway,
			fmt.Sprintf("response body too large (exceeds %d bytes)", maxBodySize), nil)
	}
	return resp.StatusCode, raw, nil
}

// calculateBackoff calculates the backoff duration for a given attempt
func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffFactor, float64(attempt-1))
	if backoff > float64(c.config.MaxBackoff) {
		backoff = float64(c.config.MaxBackoff)
	}
	return time.Duration(backoff)
}

// isRetryable returns true if the status code indicates a retryable error
func isRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusBadGateway ||
		statusCode == http.StatusGatewayTimeout
}

type envelope struct {
	items []gjson.Result
	total int
	// bare is true when the body was a plain array with no pagination.
	bare bool
}

// parseEnvelope reads list items from a bare array, or from "items" or "data"
// (optionally nested as data.items), with the total from totalCount or the
// pagination block.
func parseEnvelope(body []byte) envelope {
	res := gjson.ParseBytes(body)
	if res.IsArray() {
		return envelope{items: res.Array(), bare: true}
	}

	var env envelope
	for _, path := range []string{"items", "data", "data.items"} {
		if v := res.Get(path); v.IsArray() {
			env.items = v.Array()
			break
		}
	}
	for _, path := range []string{"totalCount", "pagination.totalCount", "pagination.total", "data.totalCount"} {
		if v := res.Get(path); v.Type == gjson.Number {
			env.total = int(v.Int())
			break
		}
	}
	return env
}
