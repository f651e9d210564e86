package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	// DefaultHTTPTimeout bounds simple probe and command requests.
	DefaultHTTPTimeout = 5 * time.Second

	// DefaultHTTPRetries is the bounded retry budget for transient failures.
	DefaultHTTPRetries = 2

	// maxResponseBytes caps how much of a device response is read. Device
	// description documents and command acknowledgements are small.
	maxResponseBytes = 1 << 20
)

// HTTPClient is a thin adapter over retryablehttp for the HTTP-speaking
// protocols: probe GETs, keypress POSTs, description-document fetches and the
// Fire TV token API. Retries are bounded and only re-run idempotent
// transport-level failures.
type HTTPClient struct {
	client *retryablehttp.Client
}

// NewHTTPClient creates an adapter with the given per-request timeout.
func NewHTTPClient(timeout time.Duration, retries int) *HTTPClient {
	c := retryablehttp.NewClient()
	c.HTTPClient.Timeout = timeout
	c.RetryMax = retries
	c.RetryWaitMin = 250 * time.Millisecond
	c.RetryWaitMax = time.Second
	c.Logger = nil
	return &HTTPClient{client: c}
}

// Response is a completed HTTP exchange.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status code is a non-error response.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 400
}

// Get issues a GET with optional headers.
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodGet, url, headers, nil)
}

// Post issues a POST with optional headers and body.
func (c *HTTPClient) Post(ctx context.Context, url string, headers map[string]string, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodPost, url, headers, body)
}

func (c *HTTPClient) do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s: %w", method, url, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
