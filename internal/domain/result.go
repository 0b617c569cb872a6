package domain

import "time"

// Source tags the provenance of a result while batches are merged.
// It is not persisted downstream.
type Source string

const (
	SourceCached    Source = "cached"
	SourcePersisted Source = "persisted"
	SourceLive      Source = "live"
)

// TimeWindow is a caller-selected recency bucket restricting which
// persisted or cached results apply.
type TimeWindow string

const (
	WindowNone  TimeWindow = ""
	WindowDay   TimeWindow = "day"
	WindowMonth TimeWindow = "month"
	WindowYear  TimeWindow = "year"
)

// Duration maps a window to its fixed, non-calendar-aware span.
// WindowNone yields zero.
func (w TimeWindow) Duration() time.Duration {
	switch w {
	case WindowDay:
		return 24 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	case WindowYear:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}

// ParseWindow normalizes a raw query parameter to a TimeWindow.
// Unknown values collapse to WindowNone.
func ParseWindow(raw string) TimeWindow {
	switch TimeWindow(raw) {
	case WindowDay, WindowMonth, WindowYear:
		return TimeWindow(raw)
	}
	return WindowNone
}

// Result is one search hit. Instances are value objects, freely copied
// between pipeline stages.
type Result struct {
	Title      string    `json:"title"`
	Link       string    `json:"link"`
	Snippet    string    `json:"snippet"`
	RawContent string    `json:"-"`
	RAGSummary string    `json:"rag_summary,omitempty"`
	MLRank     float64   `json:"ml_rank"`
	ClickCount int       `json:"click_count"`
	Relevance  bool      `json:"relevance"`
	Rank       int       `json:"rank"`
	Source     Source    `json:"-"`
	Created    time.Time `json:"created"`
}

// ResultBatch is an ordered sequence of results for one (query, window)
// pair. Within a ranked batch links are unique and Rank is a dense 1..N
// sequence.
type ResultBatch []Result

// Renumber assigns Rank densely starting at 1, preserving order.
func (b ResultBatch) Renumber() {
	for i := range b {
		b[i].Rank = i + 1
	}
}

// Links returns the batch links in order, mainly for tests and logs.
func (b ResultBatch) Links() []string {
	links := make([]string, len(b))
	for i, r := range b {
		links[i] = r.Link
	}
	return links
}

// ContentSignal carries lightweight per-document signal extracted from raw
// page content; consumed only by the filter's content-score step.
type ContentSignal struct {
	WordCount     int
	LinkCount     int
	PublishedDate time.Time
	HasDate       bool
}

// ContentScore is the word-to-link density heuristic used to filter
// low-substance pages.
func (s ContentSignal) ContentScore() float64 {
	links := s.LinkCount
	if links < 1 {
		links = 1
	}
	return float64(s.WordCount) / float64(links)
}
