// Package engine provides a client for the remote zonal statistics service.
// The service reduces raster pixel values within polygon footprints; this
// package models its request surface (derived images, mask predicates,
// reducers) and decodes its per-feature results.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the zonal statistics operations.
type Client interface {
	// ReduceRegions reduces every feature in the request against the
	// request's image at the given scale. Results are index-aligned
	// with the submitted features.
	ReduceRegions(ctx context.Context, req *ReduceRequest) (*ReduceResponse, error)
}

// Option configures the HTTP client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit paces requests at n per second with the given burst.
func WithRateLimit(n float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(n), burst)
	}
}

type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a zonal statistics client for the given service URL.
// Requests are not retried; transient failures propagate to the caller.
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 5 * time.Minute,
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

func (c *httpClient) ReduceRegions(ctx context.Context, req *ReduceRequest) (*ReduceResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "engine: rate limiter")
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "engine: marshal reduce request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/reduce-regions", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "engine: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "engine: reduce regions request")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "engine: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("engine: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var out ReduceResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, eris.Wrap(err, "engine: decode reduce response")
	}
	return &out, nil
}
