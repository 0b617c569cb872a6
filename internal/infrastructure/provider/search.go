package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"SearchAggregator/internal/domain"
	"SearchAggregator/internal/ports"
)

const (
	defaultMaxResults     = 10
	defaultMaxConcurrency = 5
	pageBodyLimit         = 2 << 20
)

// Options configure the live search client.
type Options struct {
	Endpoint       string
	APIKey         string
	EngineID       string
	MaxResults     int
	MaxConcurrency int
	Timeout        time.Duration
	PageTimeout    time.Duration
}

// SearchClient talks to a custom-search-style JSON API and enriches each
// hit with its page body. One failed page fetch degrades that document's
// content to empty rather than failing the batch.
type SearchClient struct {
	opts       Options
	httpClient *http.Client
	pageClient *http.Client
	logger     *slog.Logger
}

var _ ports.SearchProvider = (*SearchClient)(nil)
var _ ports.PageFetcher = (*SearchClient)(nil)

// NewSearchClient builds a reusable client from options.
func NewSearchClient(opts Options, logger *slog.Logger) (*SearchClient, error) {
	if opts.APIKey == "" || opts.EngineID == "" {
		return nil, fmt.Errorf("missing search API credentials")
	}
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("missing search API endpoint")
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SearchClient{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		pageClient: &http.Client{Timeout: opts.PageTimeout},
		logger:     logger,
	}, nil
}

type apiItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type apiResponse struct {
	Items []apiItem `json:"items"`
}

// Fetch runs the search and downloads page bodies for the hits, bounded by
// the configured concurrency cap. Zero items is not an error.
func (c *SearchClient) Fetch(ctx context.Context, query string) (domain.ResultBatch, error) {
	items, err := c.fetchItems(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(items) > c.opts.MaxResults {
		items = items[:c.opts.MaxResults]
	}

	now := time.Now().UTC()
	batch := make(domain.ResultBatch, 0, len(items))
	for _, item := range items {
		if item.Link == "" || item.Title == "" {
			c.logger.Debug("skipping incomplete search item", "link", item.Link)
			continue
		}
		batch = append(batch, domain.Result{
			Title:   html.UnescapeString(item.Title),
			Link:    item.Link,
			Snippet: html.UnescapeString(item.Snippet),
			Source:  domain.SourceLive,
			Created: now,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxConcurrency)
	for i := range batch {
		i := i
		g.Go(func() error {
			batch[i].RawContent = c.FetchPage(gctx, batch[i].Link)
			return nil
		})
	}
	// Workers never return errors; page failures degrade per document.
	_ = g.Wait()

	batch.Renumber()
	return batch, nil
}

func (c *SearchClient) fetchItems(ctx context.Context, query string, start int) ([]apiItem, error) {
	endpoint, err := url.Parse(c.opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	params := endpoint.Query()
	params.Set("key", c.opts.APIKey)
	params.Set("cx", c.opts.EngineID)
	params.Set("q", query)
	params.Set("start", strconv.Itoa(start))
	params.Set("num", strconv.Itoa(c.opts.MaxResults))
	params.Set("fields", "items(title,link,snippet)")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search API %s: %s", resp.Status, payload)
	}

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return decoded.Items, nil
}

// FetchPage downloads one page body with its own short timeout. Any
// failure yields an empty string.
func (c *SearchClient) FetchPage(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		c.logger.Debug("page request invalid", "url", pageURL, "error", err)
		return ""
	}
	req.Header.Set("User-Agent", "SearchAggregator/1.0")

	resp, err := c.pageClient.Do(req)
	if err != nil {
		c.logger.Debug("page fetch failed", "url", pageURL, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("page fetch rejected", "url", pageURL, "status", resp.Status)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, pageBodyLimit))
	if err != nil {
		c.logger.Debug("page read failed", "url", pageURL, "error", err)
		return ""
	}
	return string(body)
}
