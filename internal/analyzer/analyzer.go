package analyzer

import (
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"SearchAggregator/internal/domain"
	"SearchAggregator/internal/ports"
)

// Meta attribute names carrying a publish date, checked in order; the
// first match wins.
var dateMetaNames = []string{
	"article:published_time",
	"og:published_time",
	"date",
	"publish-date",
	"article.published",
}

// Analyzer extracts word count, link count, and a publish date from raw
// page markup. It performs no I/O and never fails the caller: any parse
// problem yields a zero signal.
type Analyzer struct {
	logger *slog.Logger
}

var _ ports.ContentAnalyzer = (*Analyzer)(nil)

// New builds an Analyzer; a nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger}
}

// Analyze parses the markup and returns the extracted signal.
func (a *Analyzer) Analyze(rawHTML string) domain.ContentSignal {
	if strings.TrimSpace(rawHTML) == "" {
		return domain.ContentSignal{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		a.logger.Debug("content parse failed", "error", err)
		return domain.ContentSignal{}
	}

	doc.Find("script, style, noscript").Remove()

	text := strings.TrimSpace(doc.Find("body").Text())
	if text == "" {
		text = strings.TrimSpace(doc.Text())
	}

	signal := domain.ContentSignal{
		WordCount: len(strings.Fields(text)),
		LinkCount: doc.Find("a[href]").Length(),
	}

	if raw := findDateMeta(doc); raw != "" {
		if parsed, ok := parseDate(raw); ok {
			signal.PublishedDate = parsed
			signal.HasDate = true
		}
	}

	return signal
}

func findDateMeta(doc *goquery.Document) string {
	var content string
	doc.Find("meta").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		prop, _ := sel.Attr("property")
		name, _ := sel.Attr("name")
		for _, candidate := range dateMetaNames {
			if prop == candidate || name == candidate {
				content, _ = sel.Attr("content")
				return content == ""
			}
		}
		return true
	})
	return strings.TrimSpace(content)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
