package discovery

import (
	"context"
	"fmt"

	"github.com/tvlink/tvlink/internal/transport"
)

// HTTPFetcher retrieves description documents over HTTP.
type HTTPFetcher struct {
	client *transport.HTTPClient
}

// NewHTTPFetcher creates a fetcher with the description-fetch timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: transport.NewHTTPClient(descriptionTimeout, 1)}
}

// Fetch retrieves the document at location.
func (f *HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	resp, err := f.client.Get(ctx, location, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("description fetch returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
