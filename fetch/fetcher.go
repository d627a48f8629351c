// Package fetch retrieves web sources for the literature-review stage and
// converts them to markdown the model can read.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxSize   = 5 * 1024 * 1024 // 5MB
	defaultUserAgent = "inquiry-research/1.0"
	maxRedirects     = 5
)

// FetchResult contains the result of fetching a web page.
type FetchResult struct {
	Body        []byte
	ContentType string
	StatusCode  int
}

// Fetcher fetches web content with size and redirect limits.
type Fetcher struct {
	client         *http.Client
	userAgent      string
	maxContentSize int64
}

// NewFetcher creates a web fetcher. Zero values use defaults.
func NewFetcher(timeout time.Duration, userAgent string, maxContentSize int64) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if maxContentSize <= 0 {
		maxContentSize = defaultMaxSize
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (max %d)", maxRedirects)
				}
				return nil
			},
		},
		userAgent:      userAgent,
		maxContentSize: maxContentSize,
	}
}

// Fetch retrieves content from the given URL.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	result := &FetchResult{
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	limitReader := io.LimitReader(resp.Body, f.maxContentSize+1)
	body, err := io.ReadAll(limitReader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxContentSize {
		return nil, fmt.Errorf("content too large (exceeds %d bytes)", f.maxContentSize)
	}

	result.Body = body
	return result, nil
}
