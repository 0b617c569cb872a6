package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"SearchAggregator/internal/analyzer"
	"SearchAggregator/internal/domain"
	"SearchAggregator/internal/filter"
	"SearchAggregator/internal/merger"
	"SearchAggregator/internal/ranking"
)

type fakeCache struct {
	entries map[string]domain.ResultBatch
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]domain.ResultBatch{}}
}

func (c *fakeCache) Get(_ context.Context, key string) (domain.ResultBatch, bool) {
	batch, ok := c.entries[key]
	return batch, ok
}

func (c *fakeCache) Put(_ context.Context, key string, batch domain.ResultBatch, _ time.Duration) bool {
	c.entries[key] = batch
	c.puts++
	return true
}

func (c *fakeCache) Delete(_ context.Context, key string) bool {
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

type fakeStore struct {
	batches map[string]domain.ResultBatch
	upserts []string
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{batches: map[string]domain.ResultBatch{}}
}

func (s *fakeStore) QueryByText(_ context.Context, query string, _ domain.TimeWindow) (domain.ResultBatch, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.batches[query], nil
}

func (s *fakeStore) UpsertRelevance(_ context.Context, query, link string, data domain.Result) (*domain.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.upserts = append(s.upserts, query+"|"+link)
	data.Link = link
	data.Relevance = true
	data.ClickCount = 1
	return &data, nil
}

type fakeProvider struct {
	batch domain.ResultBatch
	err   error
	calls int
}

func (p *fakeProvider) Fetch(context.Context, string) (domain.ResultBatch, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make(domain.ResultBatch, len(p.batch))
	copy(out, p.batch)
	return out, nil
}

// richContent passes the default content-score threshold comfortably.
func richContent() string {
	return "<html><body><p>" + strings.Repeat("word ", 200) + "</p></body></html>"
}

func liveResult(link, title, snippet string) domain.Result {
	return domain.Result{
		Title:      title,
		Link:       link,
		Snippet:    snippet,
		RawContent: richContent(),
		Created:    time.Now(),
	}
}

type pipelineFixture struct {
	pipeline *Pipeline
	cache    *fakeCache
	store    *fakeStore
	provider *fakeProvider
}

func newFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	resultFilter := filter.New(filter.NewBlacklist([]string{"spam.example"}), analyzer.New(nil), 2, nil)
	t.Cleanup(resultFilter.Release)

	fx := &pipelineFixture{
		cache:    newFakeCache(),
		store:    newFakeStore(),
		provider: &fakeProvider{},
	}
	fx.pipeline = NewPipeline(PipelineDeps{
		Cache:    fx.cache,
		Store:    fx.store,
		Provider: fx.provider,
		Filter:   resultFilter,
		Scorer:   ranking.NewScorer(nil),
		Merger:   merger.New(merger.DefaultConfig(), nil),
		CacheTTL: time.Minute,
	})
	return fx
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "golang", CacheKey("golang", domain.WindowNone))
	require.Equal(t, "golang:day", CacheKey("golang", domain.WindowDay))
	require.Equal(t, "golang:month", CacheKey("golang", domain.WindowMonth))
	require.Equal(t, "golang:year", CacheKey("golang", domain.WindowYear))
}

func TestRunLiveOnlyPath(t *testing.T) {
	fx := newFixture(t)
	fx.provider.batch = domain.ResultBatch{
		liveResult("https://a.example", "go generics tutorial", "type parameters explained"),
		liveResult("https://b.example", "unrelated gardening", "tomatoes and compost"),
	}

	out := fx.pipeline.Run(context.Background(), "golang", domain.WindowNone)

	require.Len(t, out, 2)
	for i, res := range out {
		require.Equal(t, i+1, res.Rank)
		require.GreaterOrEqual(t, res.MLRank, 0.0)
		require.LessOrEqual(t, res.MLRank, 1.0)
	}
	// The outcome is cached under the bare query key.
	require.Contains(t, fx.cache.entries, "golang")
}

func TestRunCacheAsideIdempotence(t *testing.T) {
	fx := newFixture(t)
	fx.provider.batch = domain.ResultBatch{
		liveResult("https://a.example", "first", "snippet one"),
		liveResult("https://b.example", "second", "snippet two"),
	}

	first := fx.pipeline.Run(context.Background(), "golang", domain.WindowNone)
	second := fx.pipeline.Run(context.Background(), "golang", domain.WindowNone)

	require.Equal(t, first, second)
	require.Equal(t, 1, fx.provider.calls, "second run must be a pure cache hit")
	require.Equal(t, 1, fx.cache.puts)
}

func TestRunMergesPersistedWithLive(t *testing.T) {
	fx := newFixture(t)
	fx.store.batches["golang"] = domain.ResultBatch{
		{Title: "marked before", Link: "https://a.example", Relevance: true, ClickCount: 4, MLRank: 0.3, Created: time.Now()},
	}
	fx.provider.batch = domain.ResultBatch{
		liveResult("https://a.example", "duplicate of marked", "fresh copy"),
		liveResult("https://c.example", "brand new", "never seen"),
	}

	out := fx.pipeline.Run(context.Background(), "golang", domain.WindowNone)

	require.Len(t, out, 2)
	require.Equal(t, "https://a.example", out[0].Link)
	require.Equal(t, "marked before", out[0].Title, "persisted copy wins the duplicate link")
	require.Equal(t, 1, fx.provider.calls)
}

func TestRunWindowedKeyIsolation(t *testing.T) {
	fx := newFixture(t)
	fx.provider.batch = domain.ResultBatch{
		liveResult("https://a.example", "doc", "text"),
	}

	fx.pipeline.Run(context.Background(), "golang", domain.WindowDay)

	require.Contains(t, fx.cache.entries, "golang:day")
	require.NotContains(t, fx.cache.entries, "golang")
}

func TestRunDegradesToEmptyOnProviderFailure(t *testing.T) {
	fx := newFixture(t)
	fx.provider.err = fmt.Errorf("search API down")

	out := fx.pipeline.Run(context.Background(), "golang", domain.WindowNone)

	require.Empty(t, out)
	require.Empty(t, fx.cache.entries, "empty batches are not cached")
}

func TestRunSurvivesStoreFailure(t *testing.T) {
	fx := newFixture(t)
	fx.store.err = fmt.Errorf("connection refused")
	fx.provider.batch = domain.ResultBatch{
		liveResult("https://a.example", "doc", "text"),
	}

	out := fx.pipeline.Run(context.Background(), "golang", domain.WindowNone)

	require.Len(t, out, 1, "store failure degrades to the live-only path")
}

func TestRunEmptyProviderBatchIsNotAnError(t *testing.T) {
	fx := newFixture(t)

	out := fx.pipeline.Run(context.Background(), "obscure query", domain.WindowNone)
	require.Empty(t, out)
}

func TestMarkRelevantInvalidationCoverage(t *testing.T) {
	fx := newFixture(t)
	seed := domain.ResultBatch{{Title: "t", Link: "https://a.example", Rank: 1}}
	for _, key := range []string{"golang", "golang:day", "golang:month", "golang:year", "other"} {
		fx.cache.entries[key] = seed
	}

	_, err := fx.pipeline.MarkRelevant(context.Background(), MarkRequest{
		Query: "golang",
		Link:  "https://a.example",
		Title: "t",
	})
	require.NoError(t, err)

	for _, key := range []string{"golang", "golang:day", "golang:month", "golang:year"} {
		require.NotContains(t, fx.cache.entries, key)
	}
	require.Contains(t, fx.cache.entries, "other", "unrelated queries keep their cache")
	require.Equal(t, []string{"golang|https://a.example"}, fx.store.upserts)
}

func TestMarkRelevantValidatesRequiredFields(t *testing.T) {
	fx := newFixture(t)

	tests := []MarkRequest{
		{Link: "https://a.example", Title: "t"},
		{Query: "golang", Title: "t"},
		{Query: "golang", Link: "https://a.example"},
	}
	for _, req := range tests {
		_, err := fx.pipeline.MarkRelevant(context.Background(), req)
		require.ErrorIs(t, err, ErrMissingField)
	}
	require.Empty(t, fx.store.upserts)
}

func TestMarkRelevantPropagatesStoreError(t *testing.T) {
	fx := newFixture(t)
	fx.store.err = fmt.Errorf("deadlock")
	fx.cache.entries["golang"] = domain.ResultBatch{{Link: "https://a.example"}}

	_, err := fx.pipeline.MarkRelevant(context.Background(), MarkRequest{
		Query: "golang", Link: "https://a.example", Title: "t",
	})

	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMissingField)
	require.Contains(t, fx.cache.entries, "golang", "failed upsert must not invalidate the cache")
}
