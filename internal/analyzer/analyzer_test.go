package analyzer

import (
	"testing"
	"time"
)

func TestAnalyzeCountsWordsAndLinks(t *testing.T) {
	t.Parallel()

	html := `
	<html><head><script>var hidden = "not words";</script></head>
	<body>
	  <p>alpha beta gamma delta</p>
	  <a href="https://one.example">one</a>
	  <a href="https://two.example">two</a>
	  <a>hrefless</a>
	</body></html>`

	signal := New(nil).Analyze(html)

	// 4 paragraph words plus the three anchor texts; script text excluded.
	if signal.WordCount != 7 {
		t.Fatalf("expected 7 words, got %d", signal.WordCount)
	}
	if signal.LinkCount != 2 {
		t.Fatalf("expected 2 links, got %d", signal.LinkCount)
	}
	if signal.HasDate {
		t.Fatalf("expected no date signal")
	}
}

func TestAnalyzeFirstDateMetaWins(t *testing.T) {
	t.Parallel()

	html := `
	<html><head>
	  <meta property="article:published_time" content="2025-03-10T12:00:00Z">
	  <meta name="date" content="1999-01-01">
	</head><body>content</body></html>`

	signal := New(nil).Analyze(html)

	if !signal.HasDate {
		t.Fatalf("expected date signal")
	}
	want := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	if !signal.PublishedDate.Equal(want) {
		t.Fatalf("expected %v, got %v", want, signal.PublishedDate)
	}
}

func TestAnalyzeNamedDateMeta(t *testing.T) {
	t.Parallel()

	html := `<html><head><meta name="publish-date" content="2024-06-01"></head><body>x</body></html>`

	signal := New(nil).Analyze(html)
	if !signal.HasDate {
		t.Fatalf("expected date signal")
	}
	if signal.PublishedDate.Year() != 2024 || signal.PublishedDate.Month() != time.June {
		t.Fatalf("unexpected date: %v", signal.PublishedDate)
	}
}

func TestAnalyzeUnparseableDateIgnored(t *testing.T) {
	t.Parallel()

	html := `<html><head><meta name="date" content="sometime last week"></head><body>x y z</body></html>`

	signal := New(nil).Analyze(html)
	if signal.HasDate {
		t.Fatalf("expected no date signal for unparseable content")
	}
	if signal.WordCount != 3 {
		t.Fatalf("expected 3 words, got %d", signal.WordCount)
	}
}

func TestAnalyzeDegradesOnGarbage(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "<<<>>>", "plain text without markup"} {
		signal := New(nil).Analyze(input)
		if signal.LinkCount != 0 || signal.HasDate {
			t.Fatalf("unexpected signal for %q: %+v", input, signal)
		}
	}
}
