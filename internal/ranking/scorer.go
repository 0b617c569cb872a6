package ranking

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"SearchAggregator/internal/domain"
)

// neutralRank is assigned to every document when the batch carries no
// usable text features: degraded ranking, not an outage.
const neutralRank = 1.0

// maxVocabulary caps the term statistics at the highest-frequency terms
// across the batch.
const maxVocabulary = 500

// Scorer converts a batch of (title, snippet) pairs into per-document
// importance scores normalized into [0,1]. The fit is per-batch and
// stateless: vocabulary and IDF statistics are rebuilt on every call, so
// no cross-request statistical state survives.
type Scorer struct {
	logger *slog.Logger
}

// NewScorer builds a Scorer; a nil logger falls back to slog.Default.
func NewScorer(logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{logger: logger}
}

// Score populates MLRank for every document and returns the batch.
// Scores always land in [0,1]; a featureless or empty-vocabulary batch
// gets the neutral default for every document.
func (s *Scorer) Score(batch domain.ResultBatch) domain.ResultBatch {
	if len(batch) == 0 {
		return batch
	}

	docs := make([][]string, len(batch))
	for i, res := range batch {
		docs[i] = tokenize(featureString(res))
	}

	vocab := buildVocabulary(docs)
	if len(vocab) == 0 {
		s.logger.Warn("no usable text features, assigning neutral ranks", "batch_size", len(batch))
		for i := range batch {
			batch[i].MLRank = neutralRank
		}
		return batch
	}

	idf := inverseDocumentFrequency(docs, vocab)
	raw := make([]float64, len(batch))
	for i, terms := range docs {
		raw[i] = documentImportance(terms, vocab, idf)
	}

	if len(batch) > 1 {
		raw = minMaxScale(raw)
	} else {
		// A single document has no peers to normalize against; keep the
		// raw score but hold the documented [0,1] bound.
		raw[0] = math.Min(raw[0], 1)
	}

	for i := range batch {
		batch[i].MLRank = raw[i]
	}
	return batch
}

// featureString builds the text the scorer sees for one document.
func featureString(res domain.Result) string {
	return strings.ToLower(strings.TrimSpace(res.Title + " " + res.Snippet))
}

func tokenize(text string) []string {
	fields := strings.Fields(text)
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		term := strings.Trim(field, ".,!?;:'\"-()[]{}")
		if term == "" || stopWords[term] {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

// buildVocabulary keeps the maxVocabulary highest-frequency terms across
// the batch, ties broken lexicographically for determinism.
func buildVocabulary(docs [][]string) map[string]struct{} {
	counts := map[string]int{}
	for _, terms := range docs {
		for _, term := range terms {
			counts[term]++
		}
	}

	if len(counts) <= maxVocabulary {
		vocab := make(map[string]struct{}, len(counts))
		for term := range counts {
			vocab[term] = struct{}{}
		}
		return vocab
	}

	type termCount struct {
		term  string
		count int
	}
	ranked := make([]termCount, 0, len(counts))
	for term, count := range counts {
		ranked = append(ranked, termCount{term, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].term < ranked[j].term
	})

	vocab := make(map[string]struct{}, maxVocabulary)
	for _, tc := range ranked[:maxVocabulary] {
		vocab[tc.term] = struct{}{}
	}
	return vocab
}

// inverseDocumentFrequency uses smoothed IDF: ln((1+N)/(1+df)) + 1.
func inverseDocumentFrequency(docs [][]string, vocab map[string]struct{}) map[string]float64 {
	df := map[string]int{}
	for _, terms := range docs {
		seen := map[string]struct{}{}
		for _, term := range terms {
			if _, ok := vocab[term]; !ok {
				continue
			}
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}
	return idf
}

// documentImportance sums the document's L2-normalized TF-IDF weights.
func documentImportance(terms []string, vocab map[string]struct{}, idf map[string]float64) float64 {
	tf := map[string]int{}
	for _, term := range terms {
		if _, ok := vocab[term]; ok {
			tf[term]++
		}
	}
	if len(tf) == 0 {
		return 0
	}

	var norm float64
	weights := make(map[string]float64, len(tf))
	for term, count := range tf {
		w := float64(count) * idf[term]
		weights[term] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return 0
	}

	var sum float64
	for _, w := range weights {
		sum += w / norm
	}
	return sum
}

// minMaxScale rescales raw scores into [0,1]; a constant vector collapses
// to zero the same way a zero-range scaler does.
func minMaxScale(raw []float64) []float64 {
	lo, hi := raw[0], raw[0]
	for _, v := range raw[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	scaled := make([]float64, len(raw))
	if hi == lo {
		return scaled
	}
	for i, v := range raw {
		scaled[i] = (v - lo) / (hi - lo)
	}
	return scaled
}
