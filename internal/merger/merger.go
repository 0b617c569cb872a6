package merger

import (
	"log/slog"
	"sort"

	"SearchAggregator/internal/domain"
)

// Config carries the composite-rank weights.
type Config struct {
	RelevanceBoost float64
}

// DefaultConfig mirrors the production weights.
func DefaultConfig() Config {
	return Config{RelevanceBoost: 2.0}
}

// Merger combines a persisted-relevance batch with a freshly scored batch
// into one deduplicated, composite-ranked batch.
type Merger struct {
	cfg    Config
	logger *slog.Logger
}

// New builds a Merger; zero boost falls back to the default.
func New(cfg Config, logger *slog.Logger) *Merger {
	if cfg.RelevanceBoost <= 0 {
		cfg.RelevanceBoost = DefaultConfig().RelevanceBoost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{cfg: cfg, logger: logger}
}

// Merge concatenates persisted before fresh, dedupes by link keeping the
// first occurrence (a persisted record always wins a duplicate-link
// conflict since it carries accumulated click/relevance history), then
// recomputes the composite rank score over the merged set and renumbers.
// Either input being empty returns the other unchanged.
func (m *Merger) Merge(persisted, fresh domain.ResultBatch) domain.ResultBatch {
	if len(persisted) == 0 {
		return fresh
	}
	if len(fresh) == 0 {
		return persisted
	}

	merged := make(domain.ResultBatch, 0, len(persisted)+len(fresh))
	seen := make(map[string]struct{}, len(persisted)+len(fresh))

	appendBatch := func(batch domain.ResultBatch, source domain.Source) {
		for _, res := range batch {
			if _, dup := seen[res.Link]; dup {
				continue
			}
			seen[res.Link] = struct{}{}
			res.Source = source
			merged = append(merged, res)
		}
	}
	appendBatch(persisted, domain.SourcePersisted)
	appendBatch(fresh, domain.SourceLive)

	scores := m.rankScores(merged)

	// Stable sort keeps concatenation order for equal scores; no secondary
	// tie-break field.
	sort.SliceStable(merged, func(i, j int) bool {
		return scores[merged[i].Link] > scores[merged[j].Link]
	})

	merged.Renumber()
	m.logger.Debug("merged batches",
		"persisted", len(persisted), "fresh", len(fresh), "merged", len(merged))
	return merged
}

// rankScores computes boost·relevance + click/maxClick + mlRank/maxMLRank
// per document. The normalizers are batch-wide maxima over the merged set,
// so scores must be recomputed whenever membership changes; a zero maximum
// zeroes that term.
func (m *Merger) rankScores(batch domain.ResultBatch) map[string]float64 {
	var maxClicks int
	var maxMLRank float64
	for _, res := range batch {
		if res.ClickCount > maxClicks {
			maxClicks = res.ClickCount
		}
		if res.MLRank > maxMLRank {
			maxMLRank = res.MLRank
		}
	}

	scores := make(map[string]float64, len(batch))
	for _, res := range batch {
		var score float64
		if res.Relevance {
			score += m.cfg.RelevanceBoost
		}
		if maxClicks > 0 {
			score += float64(res.ClickCount) / float64(maxClicks)
		}
		if maxMLRank > 0 {
			score += res.MLRank / maxMLRank
		}
		scores[res.Link] = score
	}
	return scores
}
