package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lysyi3m/news-comb/app/item"
)

type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	userAgent  string
	now        func() time.Time
}

func NewFetcher(httpClient *http.Client, parser *Parser, userAgent string) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		parser:     parser,
		userAgent:  userAgent,
		now:        time.Now,
	}
}

// Fetch downloads and parses one feed. The whole request, body included, is
// bounded by timeout.
func (f *Fetcher) Fetch(ctx context.Context, source Source, timeout time.Duration) ([]item.Candidate, error) {
	fetchedAt := f.now()

	data, err := f.fetchFeed(ctx, source.URL, timeout)
	if err != nil {
		return nil, err
	}

	candidates, err := f.parser.Run(data, source.Name, fetchedAt)
	if err != nil {
		return nil, err
	}

	return candidates, nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
