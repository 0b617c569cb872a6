package ports

import (
	"context"
	"time"

	"SearchAggregator/internal/domain"
)

// ResultCache is a key/value cache with expiry holding serialized result
// batches. Adapters convert upstream errors into misses and false returns;
// cache availability must never fail a request.
type ResultCache interface {
	Get(ctx context.Context, key string) (domain.ResultBatch, bool)
	Put(ctx context.Context, key string, batch domain.ResultBatch, ttl time.Duration) bool
	Delete(ctx context.Context, key string) bool
}

// RelevanceStore persists user-marked-relevant results per (query, link).
type RelevanceStore interface {
	QueryByText(ctx context.Context, query string, window domain.TimeWindow) (domain.ResultBatch, error)
	UpsertRelevance(ctx context.Context, query, link string, data domain.Result) (*domain.Result, error)
}

// SearchProvider fetches fresh hits from the live search API. A request
// yielding zero items is not an error.
type SearchProvider interface {
	Fetch(ctx context.Context, query string) (domain.ResultBatch, error)
}

// PageFetcher downloads a single page body. A failed fetch degrades to an
// empty string, never an error for the batch.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) string
}

// ContentAnalyzer extracts lightweight signal from raw page markup.
type ContentAnalyzer interface {
	Analyze(rawHTML string) domain.ContentSignal
}
