package gtfsrt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrFeedNotConfigured is returned for a feed kind without a location.
var ErrFeedNotConfigured = errors.New("feed not configured")

// Fetcher returns the raw payload of a realtime feed.
type Fetcher interface {
	Fetch(ctx context.Context, kind FeedKind) ([]byte, error)
}

// FeedLocations maps each feed to an http(s) URL or a local file path.
type FeedLocations map[FeedKind]string

// Client fetches GTFS-RT protobuf payloads over HTTP or from local files.
type Client struct {
	httpClient *http.Client
	locations  FeedLocations
	userAgent  string
}

// NewClient creates a client with a bounded per-request timeout.
func NewClient(locations FeedLocations, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		locations:  locations,
		userAgent:  "gtfs-journey/1.0",
	}
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, kind FeedKind) ([]byte, error) {
	loc := c.locations[kind]
	if loc == "" {
		return nil, fmt.Errorf("%s: %w", kind, ErrFeedNotConfigured)
	}
	return c.FetchURL(ctx, loc)
}

// FetchURL fetches a single feed from a URL or file path and returns raw
// protobuf bytes. Non-http locations are read from disk.
func (c *Client) FetchURL(ctx context.Context, urlOrPath string) ([]byte, error) {
	if !strings.HasPrefix(urlOrPath, "http://") && !strings.HasPrefix(urlOrPath, "https://") {
		return os.ReadFile(strings.TrimPrefix(urlOrPath, "file://"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlOrPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", urlOrPath, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/x-protobuf, application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", urlOrPath, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, urlOrPath)
	}

	return io.ReadAll(resp.Body)
}
