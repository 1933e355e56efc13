package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"HKNewsDigest/internal/domain"
	"HKNewsDigest/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore persists the dedup/reported ledger in Postgres. Layout:
// one articles table keyed by dedup_key, one runs table, one single-row
// run_lock table.
type PostgresStore struct {
	db *sql.DB
}

var _ ports.StateStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects and ensures the schema exists.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := &PostgresStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			dedup_key TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			sources TEXT[] NOT NULL,
			published_at TIMESTAMPTZ,
			relevance_score DOUBLE PRECISION,
			sentiment_label TEXT,
			is_rumor BOOLEAN NOT NULL DEFAULT FALSE,
			reported BOOLEAN NOT NULL DEFAULT FALSE,
			reported_at TIMESTAMPTZ,
			first_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_first_seen ON articles(first_seen_at)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			started_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS run_lock (
			id INT PRIMARY KEY DEFAULT 1,
			owner TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			CHECK (id = 1)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Upsert inserts or merges one article record. The merge preserves the
// stored reported flag and unions source attribution in SQL.
func (s *PostgresStore) Upsert(ctx context.Context, article domain.Article) error {
	payload, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("marshal article: %w", err)
	}

	query, args, err := psql.Insert("articles").
		Columns("dedup_key", "payload", "sources", "published_at",
			"relevance_score", "sentiment_label", "is_rumor", "reported").
		Values(article.DedupKey, payload, pq.StringArray(article.Sources),
			article.PublishedAt, article.RelevanceScore,
			string(article.SentimentLabel), article.IsRumor, article.Reported).
		Suffix(`ON CONFLICT (dedup_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			sources = ARRAY(SELECT DISTINCT unnest(articles.sources || EXCLUDED.sources)),
			published_at = LEAST(articles.published_at, EXCLUDED.published_at),
			relevance_score = EXCLUDED.relevance_score,
			sentiment_label = EXCLUDED.sentiment_label,
			is_rumor = EXCLUDED.is_rumor,
			reported = articles.reported OR EXCLUDED.reported`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", article.DedupKey, err)
	}
	return nil
}

// Get loads a stored article by dedup key.
func (s *PostgresStore) Get(ctx context.Context, dedupKey string) (domain.Article, bool, error) {
	query, args, err := psql.Select("payload", "sources", "reported", "reported_at").
		From("articles").
		Where(sq.Eq{"dedup_key": dedupKey}).
		ToSql()
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("build get: %w", err)
	}

	var payload []byte
	var sources pq.StringArray
	var reported bool
	var reportedAt sql.NullTime
	row := s.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&payload, &sources, &reported, &reportedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Article{}, false, nil
		}
		return domain.Article{}, false, fmt.Errorf("get %s: %w", dedupKey, err)
	}

	var article domain.Article
	if err := json.Unmarshal(payload, &article); err != nil {
		return domain.Article{}, false, fmt.Errorf("unmarshal %s: %w", dedupKey, err)
	}
	article.Sources = sources
	article.Reported = reported
	if reportedAt.Valid {
		article.ReportedAt = reportedAt.Time
	}
	return article, true, nil
}

// HasSeen reports whether the key was first stored within the window.
func (s *PostgresStore) HasSeen(ctx context.Context, dedupKey string, within time.Duration) (bool, error) {
	builder := psql.Select("COUNT(*)").
		From("articles").
		Where(sq.Eq{"dedup_key": dedupKey})
	if within > 0 {
		builder = builder.Where(sq.GtOrEq{"first_seen_at": time.Now().Add(-within)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return false, fmt.Errorf("build has_seen: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("has_seen %s: %w", dedupKey, err)
	}
	return count > 0, nil
}

// SeenKeys returns the dedup keys reported within the window. Stored but
// never reported articles are not included, so a failed delivery resurfaces
// them on the next run.
func (s *PostgresStore) SeenKeys(ctx context.Context, within time.Duration) ([]string, error) {
	query, args, err := psql.Select("dedup_key").
		From("articles").
		Where(sq.GtOrEq{"first_seen_at": time.Now().Add(-within)}).
		Where(sq.Eq{"reported": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build seen_keys: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("seen_keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return keys, nil
}

// MarkReported flags the batch inside a transaction, all-or-nothing.
func (s *PostgresStore) MarkReported(ctx context.Context, dedupKeys []string, at time.Time) error {
	if len(dedupKeys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	query, args, err := psql.Update("articles").
		Set("reported", true).
		Set("reported_at", at).
		Where(sq.Eq{"dedup_key": dedupKeys}).
		ToSql()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("build mark_reported: %w", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("mark_reported: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected != int64(len(dedupKeys)) {
		_ = tx.Rollback()
		return fmt.Errorf("mark_reported: %d of %d keys found", affected, len(dedupKeys))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark_reported: %w", err)
	}
	return nil
}

// Prune deletes records first seen before the retention horizon.
func (s *PostgresStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	query, args, err := psql.Delete("articles").
		Where(sq.Lt{"first_seen_at": olderThan}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build prune: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

// Stats summarizes stored articles for the report footer.
func (s *PostgresStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	stats := domain.StoreStats{
		SentimentBreakdown: make(map[domain.SentimentLabel]int),
		SourceBreakdown:    make(map[string]int),
	}

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE is_rumor),
		COUNT(*) FILTER (WHERE published_at >= date_trunc('day', NOW()))
		FROM articles`)
	if err := row.Scan(&stats.TotalArticles, &stats.Rumors, &stats.ArticlesToday); err != nil {
		return stats, fmt.Errorf("stats totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT sentiment_label, COUNT(*) FROM articles
		 WHERE sentiment_label <> '' GROUP BY sentiment_label`)
	if err != nil {
		return stats, fmt.Errorf("stats sentiment: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return stats, fmt.Errorf("scan sentiment: %w", err)
		}
		stats.SentimentBreakdown[domain.SentimentLabel(label)] = count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("sentiment rows: %w", err)
	}

	srcRows, err := s.db.QueryContext(ctx,
		`SELECT src, COUNT(*) FROM articles, unnest(sources) AS src GROUP BY src`)
	if err != nil {
		return stats, fmt.Errorf("stats sources: %w", err)
	}
	defer srcRows.Close()
	for srcRows.Next() {
		var src string
		var count int
		if err := srcRows.Scan(&src, &count); err != nil {
			return stats, fmt.Errorf("scan source: %w", err)
		}
		stats.SourceBreakdown[src] = count
	}
	if err := srcRows.Err(); err != nil {
		return stats, fmt.Errorf("source rows: %w", err)
	}

	return stats, nil
}

// AcquireRunLock takes the single-row lock; a live lock owned by another
// run fails with ErrRunLocked.
func (s *PostgresStore) AcquireRunLock(ctx context.Context, runID string, ttl time.Duration) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO run_lock (id, owner, expires_at) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET owner = EXCLUDED.owner, expires_at = EXCLUDED.expires_at
		 WHERE run_lock.owner = EXCLUDED.owner OR run_lock.expires_at <= NOW()`,
		runID, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrRunLocked
	}
	return nil
}

// ReleaseRunLock drops the lock when still owned by this run.
func (s *PostgresStore) ReleaseRunLock(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM run_lock WHERE id = 1 AND owner = $1`, runID); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

// SaveRun persists the run summary keyed by run ID.
func (s *PostgresStore) SaveRun(ctx context.Context, run domain.RunRecord) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	query, args, err := psql.Insert("runs").
		Columns("id", "payload", "started_at").
		Values(run.ID, payload, run.StartedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save_run: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit run summaries, newest first.
func (s *PostgresStore) RecentRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	builder := psql.Select("payload").
		From("runs").
		OrderBy("started_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent_runs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent_runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		var run domain.RunRecord
		if err := json.Unmarshal(payload, &run); err != nil {
			return nil, fmt.Errorf("unmarshal run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runs iteration: %w", err)
	}
	return runs, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
