package dom

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher produces the markup of a URL.
type Fetcher interface {
	PageMarkup(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (string, error)

// PageMarkup calls f.
func (f FetcherFunc) PageMarkup(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// HTTPFetcher downloads raw page bytes and decodes them with DecodeMarkup.
// It is the fallback when the browser cannot hand over a frame's markup.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher with a bounded client timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

// PageMarkup fetches url.
func (f *HTTPFetcher) PageMarkup(ctx context.Context, url string) (string, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request for %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	text, _, err := DecodeMarkup(raw)
	return text, err
}

// FallbackFetcher tries Primary, then Secondary when Primary fails.
type FallbackFetcher struct {
	Primary   Fetcher
	Secondary Fetcher
}

// PageMarkup fetches url from the first fetcher that succeeds.
func (f FallbackFetcher) PageMarkup(ctx context.Context, url string) (string, error) {
	markup, err := f.Primary.PageMarkup(ctx, url)
	if err == nil || f.Secondary == nil {
		return markup, err
	}
	markup, err2 := f.Secondary.PageMarkup(ctx, url)
	if err2 != nil {
		return "", fmt.Errorf("%v; fallback: %w", err, err2)
	}
	return markup, nil
}
