package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxPayload caps how much of the feed body is read; the real feed is
// a few hundred KB at peak hours.
const maxPayload = 4 << 20

// Fetcher supplies one raw feed payload per call
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// FeedClient fetches the master-server match list over HTTP
type FeedClient struct {
	url       string
	userAgent string
	client    *http.Client
}

// NewFeedClient creates a feed client with a bounded request timeout
func NewFeedClient(url string, timeout time.Duration, userAgent string) *FeedClient {
	return &FeedClient{
		url:       url,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the raw payload. Any failure leaves the previously
// published snapshot in place; the caller decides what to do with it.
func (c *FeedClient) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/plain, */*")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching feed: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return "", fmt.Errorf("reading feed body: %w", err)
	}

	return string(body), nil
}
