package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"SearchAggregator/internal/domain"
	"SearchAggregator/internal/filter"
	"SearchAggregator/internal/merger"
	"SearchAggregator/internal/ports"
	"SearchAggregator/internal/ranking"
)

// ErrMissingField reports a malformed relevance-mark request. It is a
// client error, never a pipeline fault.
var ErrMissingField = errors.New("missing required field")

// PipelineDeps wires all driven adapters into the aggregation pipeline.
type PipelineDeps struct {
	Cache    ports.ResultCache
	Store    ports.RelevanceStore
	Provider ports.SearchProvider
	Filter   *filter.Filter
	Scorer   *ranking.Scorer
	Merger   *merger.Merger
	CacheTTL time.Duration
	MinWords int
	Logger   *slog.Logger
}

// Pipeline orchestrates cache lookup, persisted-result lookup, live fetch,
// filtering, scoring, merging, and cache write-back. Its overriding policy
// is availability over precision: a degraded, possibly empty batch is
// always preferred to a failed request.
type Pipeline struct {
	cache    ports.ResultCache
	store    ports.RelevanceStore
	provider ports.SearchProvider
	filter   *filter.Filter
	scorer   *ranking.Scorer
	merger   *merger.Merger
	cacheTTL time.Duration
	minWords int
	logger   *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = 600 * time.Second
	}
	return &Pipeline{
		cache:    deps.Cache,
		store:    deps.Store,
		provider: deps.Provider,
		filter:   deps.Filter,
		scorer:   deps.Scorer,
		merger:   deps.Merger,
		cacheTTL: ttl,
		minWords: deps.MinWords,
		logger:   logger,
	}
}

// CacheKey derives the cache key for a (query, window) pair.
func CacheKey(query string, window domain.TimeWindow) string {
	if window == domain.WindowNone {
		return query
	}
	return fmt.Sprintf("%s:%s", query, window)
}

// Run returns the final ordered batch for the query. Cached batches are
// trusted fully for their TTL; on miss the persisted and live paths are
// aggregated and the outcome is written back under the same key.
func (p *Pipeline) Run(ctx context.Context, query string, window domain.TimeWindow) domain.ResultBatch {
	key := CacheKey(query, window)

	if p.cache != nil {
		if cached, ok := p.cache.Get(ctx, key); ok {
			p.logger.Info("cache hit", "key", key, "results", len(cached))
			return cached
		}
	}

	persisted := p.loadPersisted(ctx, query, window)

	var batch domain.ResultBatch
	if len(persisted) > 0 {
		// The live provider has no notion of a time window; the window
		// constrains only persisted and cached batches.
		fresh := p.fetchAndScore(ctx, query, window)
		batch = p.merger.Merge(persisted, fresh)
	} else {
		batch = p.fetchAndScore(ctx, query, window)
	}

	if len(batch) > 0 && p.cache != nil {
		if !p.cache.Put(ctx, key, batch, p.cacheTTL) {
			p.logger.Warn("cache store failed", "key", key)
		}
	}

	p.logger.Info("aggregation completed", "query", query, "window", string(window), "results", len(batch))
	return batch
}

func (p *Pipeline) loadPersisted(ctx context.Context, query string, window domain.TimeWindow) domain.ResultBatch {
	if p.store == nil {
		return nil
	}

	persisted, err := p.store.QueryByText(ctx, query, window)
	if err != nil {
		p.logger.Warn("relevance store unavailable", "query", query, "error", err)
		return nil
	}
	return persisted
}

func (p *Pipeline) fetchAndScore(ctx context.Context, query string, window domain.TimeWindow) domain.ResultBatch {
	if p.provider == nil {
		return nil
	}

	live, err := p.provider.Fetch(ctx, query)
	if err != nil {
		p.logger.Warn("live fetch failed", "query", query, "error", err)
		return nil
	}

	filtered := p.filter.Apply(live, filter.Options{MinWords: p.minWords, Window: window})
	return p.scorer.Score(filtered)
}

// MarkRequest is the pipeline-facing contract for marking one
// (query, link) relevant.
type MarkRequest struct {
	Query      string  `json:"query"`
	Link       string  `json:"link"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
	MLRank     float64 `json:"ml_rank"`
	RAGSummary string  `json:"rag_summary"`
	Rank       int     `json:"rank"`
}

func (r MarkRequest) validate() error {
	switch {
	case r.Query == "":
		return fmt.Errorf("%w: query", ErrMissingField)
	case r.Link == "":
		return fmt.Errorf("%w: link", ErrMissingField)
	case r.Title == "":
		return fmt.Errorf("%w: title", ErrMissingField)
	}
	return nil
}

// MarkRelevant upserts the persisted relevance record and proactively
// invalidates every cache key that could hold a stale batch for the query,
// so the next run re-reads the updated signal.
func (p *Pipeline) MarkRelevant(ctx context.Context, req MarkRequest) (*domain.Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if p.store == nil {
		return nil, errors.New("relevance store not configured")
	}

	rank := req.Rank
	if rank <= 0 {
		rank = 1
	}

	updated, err := p.store.UpsertRelevance(ctx, req.Query, req.Link, domain.Result{
		Title:      req.Title,
		Snippet:    req.Snippet,
		MLRank:     req.MLRank,
		RAGSummary: req.RAGSummary,
		Rank:       rank,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert relevance: %w", err)
	}

	if p.cache != nil {
		for _, window := range []domain.TimeWindow{domain.WindowNone, domain.WindowDay, domain.WindowMonth, domain.WindowYear} {
			key := CacheKey(req.Query, window)
			if !p.cache.Delete(ctx, key) {
				p.logger.Debug("cache invalidation no-op", "key", key)
			}
		}
	}

	return updated, nil
}
