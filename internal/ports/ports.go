package ports

import (
	"context"
	"time"

	"HKNewsDigest/internal/domain"
)

// SourceAdapter pulls raw records from one upstream news provider. Adapters
// are independent: one failing must not abort the others.
type SourceAdapter interface {
	Name() string
	Fetch(ctx context.Context, watchlist []domain.WatchlistEntry, lookback time.Duration) ([]domain.RawRecord, error)
}

// StateStore is the durable dedup/reported ledger keyed by dedup key.
// Persistence failures are fatal to a run; implementations must never leave
// a record partially written.
type StateStore interface {
	// Upsert inserts a new record or merges into the existing one for the
	// same dedup key.
	Upsert(ctx context.Context, article domain.Article) error

	// Get loads the stored record for a dedup key; found is false when absent.
	Get(ctx context.Context, dedupKey string) (article domain.Article, found bool, err error)

	// HasSeen reports whether the key was stored within the lookback window.
	HasSeen(ctx context.Context, dedupKey string, within time.Duration) (bool, error)

	// SeenKeys returns the dedup keys reported within the lookback window,
	// used to prime the deduplicator so a story is reported at most once.
	SeenKeys(ctx context.Context, within time.Duration) ([]string, error)

	// MarkReported flags the whole batch as reported atomically; a failed
	// delivery must not leave a partial batch marked.
	MarkReported(ctx context.Context, dedupKeys []string, at time.Time) error

	// Prune removes records older than the retention horizon.
	Prune(ctx context.Context, olderThan time.Time) (int, error)

	// Stats summarizes stored articles for the report footer.
	Stats(ctx context.Context) (domain.StoreStats, error)

	// AcquireRunLock takes the single-run lock, failing when a live lock is
	// held by another run. Expired locks are reclaimed.
	AcquireRunLock(ctx context.Context, runID string, ttl time.Duration) error
	ReleaseRunLock(ctx context.Context, runID string) error

	// SaveRun persists the run summary, including failed runs.
	SaveRun(ctx context.Context, run domain.RunRecord) error

	// RecentRuns returns up to limit run summaries, newest first.
	RecentRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)

	Close() error
}

// Translator maps text to English. Total: implementations never return an
// error, falling back to a deterministic strategy instead.
type Translator interface {
	Translate(ctx context.Context, text, sourceLangHint string) string
}

// TranslationBackend is the pluggable capability the translator gateway
// wraps; unlike the gateway it may fail.
type TranslationBackend interface {
	Translate(ctx context.Context, text, sourceLang string) (string, error)
}

// SentimentScorer assigns a 3-way label with calibrated confidence. Total:
// backend failure yields (neutral, 0.0).
type SentimentScorer interface {
	Score(ctx context.Context, text string) domain.Sentiment
}

// SentimentBackend is the pluggable model call behind the scorer gateway.
type SentimentBackend interface {
	Score(ctx context.Context, text string) (domain.Sentiment, error)
}

// RenderedReport is a digest rendered for delivery.
type RenderedReport struct {
	Subject string
	HTML    string
	Text    string
}

// ReportRenderer turns the ranked selection into a deliverable document.
type ReportRenderer interface {
	Render(runDate time.Time, articles []domain.Article, stats domain.StoreStats) (RenderedReport, error)
}

// ReportSink delivers a rendered report (SMTP, local file, ...).
type ReportSink interface {
	Deliver(ctx context.Context, runDate time.Time, report RenderedReport) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
