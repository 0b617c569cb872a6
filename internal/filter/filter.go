package filter

import (
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"SearchAggregator/internal/domain"
	"SearchAggregator/internal/ports"
)

// Options tune one filtering pass.
type Options struct {
	MinWords int
	Window   domain.TimeWindow
}

// DefaultMinWords is the content-score threshold applied when Options
// leaves MinWords unset.
const DefaultMinWords = 50

// Filter applies blacklist, recency, and minimum-content-length filtering
// to a candidate batch. Content analysis is CPU-bound per document and runs
// on a bounded worker pool with a single join point.
type Filter struct {
	blacklist *Blacklist
	analyzer  ports.ContentAnalyzer
	pool      *ants.Pool
	logger    *slog.Logger
	now       func() time.Time
}

// New wires the filter. A nil pool size falls back to serial analysis.
func New(blacklist *Blacklist, analyzer ports.ContentAnalyzer, poolSize int, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}

	f := &Filter{
		blacklist: blacklist,
		analyzer:  analyzer,
		logger:    logger,
		now:       time.Now,
	}

	if poolSize > 0 {
		pool, err := ants.NewPool(poolSize)
		if err != nil {
			logger.Warn("worker pool unavailable, analysis runs serially", "error", err)
		} else {
			f.pool = pool
		}
	}

	return f
}

// Release frees the worker pool.
func (f *Filter) Release() {
	if f.pool != nil {
		f.pool.Release()
	}
}

// Apply runs the filtering steps in order and returns the surviving batch,
// renumbered densely from 1. It never fails: an internal error degrades to
// the best batch computed so far.
func (f *Filter) Apply(batch domain.ResultBatch, opts Options) domain.ResultBatch {
	if opts.MinWords <= 0 {
		opts.MinWords = DefaultMinWords
	}

	filtered := f.dropBlacklisted(batch)
	filtered = f.dropStale(filtered, opts.Window)

	signals := f.analyzeAll(filtered)

	kept := make(domain.ResultBatch, 0, len(filtered))
	for i, res := range filtered {
		if signals[i].ContentScore() < float64(opts.MinWords) {
			continue
		}
		kept = append(kept, res)
	}

	kept.Renumber()
	return kept
}

func (f *Filter) dropBlacklisted(batch domain.ResultBatch) domain.ResultBatch {
	kept := make(domain.ResultBatch, 0, len(batch))
	for _, res := range batch {
		if f.blacklist.Contains(extractDomain(res.Link)) {
			f.logger.Debug("dropped blacklisted result", "link", res.Link)
			continue
		}
		kept = append(kept, res)
	}
	return kept
}

func (f *Filter) dropStale(batch domain.ResultBatch, window domain.TimeWindow) domain.ResultBatch {
	if window == domain.WindowNone {
		return batch
	}

	cutoff := f.now().Add(-window.Duration())
	kept := make(domain.ResultBatch, 0, len(batch))
	for _, res := range batch {
		if res.Created.Before(cutoff) {
			continue
		}
		kept = append(kept, res)
	}
	return kept
}

// analyzeAll computes every document's signal, in parallel when a pool is
// available. The batch waits on all analyses before continuing.
func (f *Filter) analyzeAll(batch domain.ResultBatch) []domain.ContentSignal {
	signals := make([]domain.ContentSignal, len(batch))
	if f.analyzer == nil {
		return signals
	}

	if f.pool == nil {
		for i, res := range batch {
			signals[i] = f.analyzer.Analyze(res.RawContent)
		}
		return signals
	}

	var wg sync.WaitGroup
	for i := range batch {
		i := i
		raw := batch[i].RawContent
		wg.Add(1)
		if err := f.pool.Submit(func() {
			defer wg.Done()
			signals[i] = f.analyzer.Analyze(raw)
		}); err != nil {
			wg.Done()
			f.logger.Warn("pool submit failed, analyzing inline", "error", err)
			signals[i] = f.analyzer.Analyze(raw)
		}
	}
	wg.Wait()

	return signals
}

// DateDistribution buckets a batch by result age. It is an observability
// aid, not a filtering decision point; results with no usable timestamp
// count as unknown.
func (f *Filter) DateDistribution(batch domain.ResultBatch) map[string]int {
	dist := map[string]int{
		"last_day":   0,
		"last_week":  0,
		"last_month": 0,
		"last_year":  0,
		"older":      0,
		"unknown":    0,
	}

	now := f.now()
	for _, res := range batch {
		ts := res.Created
		if ts.IsZero() {
			dist["unknown"]++
			continue
		}

		age := now.Sub(ts)
		switch {
		case age <= 24*time.Hour:
			dist["last_day"]++
		case age <= 7*24*time.Hour:
			dist["last_week"]++
		case age <= 30*24*time.Hour:
			dist["last_month"]++
		case age <= 365*24*time.Hour:
			dist["last_year"]++
		default:
			dist["older"]++
		}
	}

	return dist
}
