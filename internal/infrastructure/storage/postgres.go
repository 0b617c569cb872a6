package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"SearchAggregator/internal/domain"
	"SearchAggregator/internal/ports"
)

// PostgresStore persists user-marked-relevant results per (query, link).
type PostgresStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.RelevanceStore = (*PostgresStore)(nil)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore wires an existing sql.DB.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now:     time.Now,
	}
}

// EnsureSchema creates the results table when missing. (query, link)
// uniqueness is what upserts key on.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}

	query := `CREATE TABLE IF NOT EXISTS results (
        id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
        query TEXT NOT NULL,
        rank INTEGER NOT NULL,
        link TEXT NOT NULL,
        title TEXT NOT NULL,
        snippet TEXT,
        created TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
        relevance BOOLEAN DEFAULT FALSE,
        ml_rank REAL DEFAULT 0.0,
        rag_summary TEXT,
        click_count INTEGER DEFAULT 0,
        last_clicked TIMESTAMP WITH TIME ZONE,
        UNIQUE (query, link)
    )`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// QueryByText loads prior relevant results for the query, most relevant
// and most clicked first, honoring the recency window when set.
func (s *PostgresStore) QueryByText(ctx context.Context, query string, window domain.TimeWindow) (domain.ResultBatch, error) {
	if s.db == nil {
		return nil, nil
	}

	builder := s.builder.
		Select("title", "link", "snippet", "ml_rank", "rag_summary", "click_count", "relevance", "rank", "created").
		From("results").
		Where(sq.Eq{"query": query}).
		OrderBy("relevance DESC", "click_count DESC", "rank ASC")

	if window != domain.WindowNone {
		cutoff := s.now().Add(-window.Duration())
		builder = builder.Where(sq.GtOrEq{"created": cutoff})
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var batch domain.ResultBatch
	for rows.Next() {
		var res domain.Result
		var snippet, ragSummary sql.NullString
		if err := rows.Scan(&res.Title, &res.Link, &snippet, &res.MLRank, &ragSummary,
			&res.ClickCount, &res.Relevance, &res.Rank, &res.Created); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res.Snippet = snippet.String
		res.RAGSummary = ragSummary.String
		res.Source = domain.SourcePersisted
		batch = append(batch, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return batch, nil
}

// UpsertRelevance marks the (query, link) pair relevant: click count is
// incremented, metadata fields overwritten from the caller-supplied data.
func (s *PostgresStore) UpsertRelevance(ctx context.Context, query, link string, data domain.Result) (*domain.Result, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not connected")
	}

	now := s.now().UTC()
	stmt, args, err := s.builder.
		Insert("results").
		Columns("query", "link", "title", "snippet", "ml_rank", "rag_summary",
			"rank", "relevance", "click_count", "last_clicked", "created").
		Values(query, link, data.Title, data.Snippet, data.MLRank, data.RAGSummary,
			data.Rank, true, 1, now, now).
		Suffix(`ON CONFLICT (query, link) DO UPDATE
            SET relevance = TRUE,
                click_count = results.click_count + 1,
                last_clicked = EXCLUDED.last_clicked,
                title = EXCLUDED.title,
                snippet = EXCLUDED.snippet,
                ml_rank = EXCLUDED.ml_rank,
                rag_summary = EXCLUDED.rag_summary
            RETURNING title, link, snippet, ml_rank, rag_summary, click_count, relevance, rank, created`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert: %w", err)
	}

	var res domain.Result
	var snippet, ragSummary sql.NullString
	row := s.db.QueryRowContext(ctx, stmt, args...)
	if err := row.Scan(&res.Title, &res.Link, &snippet, &res.MLRank, &ragSummary,
		&res.ClickCount, &res.Relevance, &res.Rank, &res.Created); err != nil {
		return nil, fmt.Errorf("upsert relevance: %w", err)
	}
	res.Snippet = snippet.String
	res.RAGSummary = ragSummary.String
	res.Source = domain.SourcePersisted

	return &res, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
