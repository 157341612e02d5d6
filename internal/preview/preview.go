// Package preview describes scanned links that point at RSS, Atom or JSON feeds.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// ErrNotLink is returned when a payload is not an http(s) URL.
var ErrNotLink = errors.New("payload is not a web link")

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads and parses feeds behind scanned links.
type Fetcher struct {
	client  HTTPClient
	timeout time.Duration
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{
		client:  client,
		timeout: 10 * time.Second,
	}
}

// Fetch downloads and parses the feed at the given URL.
func (f *Fetcher) Fetch(ctx context.Context, link string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "CodeScanner/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// Describe returns a one-line summary of the feed a scanned payload links to.
// It returns ErrNotLink for payloads that are not http(s) URLs.
func (f *Fetcher) Describe(ctx context.Context, payload string) (string, error) {
	link, ok := asLink(payload)
	if !ok {
		return "", ErrNotLink
	}

	feed, err := f.Fetch(ctx, link)
	if err != nil {
		return "", err
	}
	return Summary(feed), nil
}

// Summary formats a feed title, item count and latest item title.
func Summary(feed *gofeed.Feed) string {
	title := strings.TrimSpace(feed.Title)
	if title == "" {
		title = "Untitled feed"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Feed: %s (%d items)", title, len(feed.Items))
	if len(feed.Items) > 0 && feed.Items[0].Title != "" {
		fmt.Fprintf(&b, "\nLatest: %s", feed.Items[0].Title)
	}
	return b.String()
}

func asLink(payload string) (string, bool) {
	s := strings.TrimSpace(payload)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return s, true
}
