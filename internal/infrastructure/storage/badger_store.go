package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"HKNewsDigest/internal/domain"
	"HKNewsDigest/internal/ports"
)

// ErrRunLocked is returned when another live run holds the run lock.
var ErrRunLocked = errors.New("run lock held by another run")

const runLockKey = "run-lock"

// articleRecord is the persisted layout keyed by dedup key.
type articleRecord struct {
	DedupKey    string
	Article     domain.Article
	FirstSeenAt time.Time
}

// runLockRecord enforces one run at a time; expired locks are reclaimed.
type runLockRecord struct {
	Owner     string
	ExpiresAt time.Time
}

// BadgerStore is the embedded default state store.
type BadgerStore struct {
	store  *badgerhold.Store
	logger *slog.Logger
}

var _ ports.StateStore = (*BadgerStore)(nil)

// OpenBadger opens (creating if needed) the store directory.
func OpenBadger(path string, logger *slog.Logger) (*BadgerStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	if logger != nil {
		logger.Debug("badger store opened", "path", path)
	}
	return &BadgerStore{store: store, logger: logger}, nil
}

// Upsert inserts a new record or merges into the existing one. Reported
// state and first-seen time of the stored record always survive a merge.
func (s *BadgerStore) Upsert(ctx context.Context, article domain.Article) error {
	err := s.store.Badger().Update(func(tx *badger.Txn) error {
		var existing articleRecord
		getErr := s.store.TxGet(tx, article.DedupKey, &existing)
		if getErr != nil && getErr != badgerhold.ErrNotFound {
			return getErr
		}

		record := articleRecord{
			DedupKey:    article.DedupKey,
			Article:     article,
			FirstSeenAt: time.Now(),
		}
		if getErr == nil {
			record.FirstSeenAt = existing.FirstSeenAt
			record.Article = mergeStored(existing.Article, article)
		}
		return s.store.TxUpsert(tx, article.DedupKey, record)
	})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", article.DedupKey, err)
	}
	return nil
}

// Get loads a stored article by dedup key.
func (s *BadgerStore) Get(ctx context.Context, dedupKey string) (domain.Article, bool, error) {
	var record articleRecord
	err := s.store.Get(dedupKey, &record)
	if err == badgerhold.ErrNotFound {
		return domain.Article{}, false, nil
	}
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("get %s: %w", dedupKey, err)
	}
	return record.Article, true, nil
}

// HasSeen reports whether the key was first stored within the window.
func (s *BadgerStore) HasSeen(ctx context.Context, dedupKey string, within time.Duration) (bool, error) {
	var record articleRecord
	err := s.store.Get(dedupKey, &record)
	if err == badgerhold.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", dedupKey, err)
	}
	if within <= 0 {
		return true, nil
	}
	return record.FirstSeenAt.After(time.Now().Add(-within)), nil
}

// SeenKeys returns the keys reported within the window. Stored but never
// reported articles are not included, so a failed delivery resurfaces them
// on the next run.
func (s *BadgerStore) SeenKeys(ctx context.Context, within time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-within)

	var records []articleRecord
	if err := s.store.Find(&records, badgerhold.Where("FirstSeenAt").Ge(cutoff)); err != nil {
		return nil, fmt.Errorf("find seen keys: %w", err)
	}

	keys := make([]string, 0, len(records))
	for _, record := range records {
		if record.Article.Reported {
			keys = append(keys, record.DedupKey)
		}
	}
	return keys, nil
}

// MarkReported flags the batch inside one transaction so a failed report
// delivery never leaves a partial batch marked.
func (s *BadgerStore) MarkReported(ctx context.Context, dedupKeys []string, at time.Time) error {
	err := s.store.Badger().Update(func(tx *badger.Txn) error {
		for _, key := range dedupKeys {
			var record articleRecord
			if err := s.store.TxGet(tx, key, &record); err != nil {
				return fmt.Errorf("key %s: %w", key, err)
			}
			record.Article.Reported = true
			record.Article.ReportedAt = at
			if err := s.store.TxUpdate(tx, key, record); err != nil {
				return fmt.Errorf("key %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark reported: %w", err)
	}
	return nil
}

// Prune deletes records first seen before the retention horizon.
func (s *BadgerStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	query := badgerhold.Where("FirstSeenAt").Lt(olderThan)

	var stale []articleRecord
	if err := s.store.Find(&stale, query); err != nil {
		return 0, fmt.Errorf("find stale: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := s.store.DeleteMatching(&articleRecord{}, query); err != nil {
		return 0, fmt.Errorf("delete stale: %w", err)
	}
	return len(stale), nil
}

// Stats summarizes stored articles for the report footer.
func (s *BadgerStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	var records []articleRecord
	if err := s.store.Find(&records, nil); err != nil {
		return domain.StoreStats{}, fmt.Errorf("find all: %w", err)
	}

	stats := domain.StoreStats{
		SentimentBreakdown: make(map[domain.SentimentLabel]int),
		SourceBreakdown:    make(map[string]int),
	}
	today := time.Now().Truncate(24 * time.Hour)
	for _, record := range records {
		stats.TotalArticles++
		if record.Article.IsRumor {
			stats.Rumors++
		}
		if !record.Article.PublishedAt.Before(today) {
			stats.ArticlesToday++
		}
		if record.Article.SentimentLabel != "" {
			stats.SentimentBreakdown[record.Article.SentimentLabel]++
		}
		for _, src := range record.Article.Sources {
			stats.SourceBreakdown[src]++
		}
	}
	return stats, nil
}

// AcquireRunLock takes the single-run lock; a live lock owned by another
// run fails with ErrRunLocked.
func (s *BadgerStore) AcquireRunLock(ctx context.Context, runID string, ttl time.Duration) error {
	err := s.store.Badger().Update(func(tx *badger.Txn) error {
		var lock runLockRecord
		getErr := s.store.TxGet(tx, runLockKey, &lock)
		if getErr != nil && getErr != badgerhold.ErrNotFound {
			return getErr
		}
		if getErr == nil && lock.Owner != runID && lock.ExpiresAt.After(time.Now()) {
			return ErrRunLocked
		}
		return s.store.TxUpsert(tx, runLockKey, runLockRecord{
			Owner:     runID,
			ExpiresAt: time.Now().Add(ttl),
		})
	})
	if err != nil {
		if errors.Is(err, ErrRunLocked) {
			return err
		}
		return fmt.Errorf("acquire run lock: %w", err)
	}
	return nil
}

// ReleaseRunLock drops the lock when still owned by this run.
func (s *BadgerStore) ReleaseRunLock(ctx context.Context, runID string) error {
	err := s.store.Badger().Update(func(tx *badger.Txn) error {
		var lock runLockRecord
		getErr := s.store.TxGet(tx, runLockKey, &lock)
		if getErr == badgerhold.ErrNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		if lock.Owner != runID {
			return nil
		}
		return s.store.TxDelete(tx, runLockKey, runLockRecord{})
	})
	if err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

// SaveRun persists the run summary keyed by run ID.
func (s *BadgerStore) SaveRun(ctx context.Context, run domain.RunRecord) error {
	if err := s.store.Upsert(run.ID, run); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit run summaries, newest first.
func (s *BadgerStore) RecentRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	var runs []domain.RunRecord
	query := badgerhold.Where("StartedAt").Ge(time.Time{}).SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.store.Find(&runs, query); err != nil {
		return nil, fmt.Errorf("find runs: %w", err)
	}
	return runs, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// mergeStored folds a new snapshot into the stored record: earliest
// publication wins, attribution unions, reported state is sticky.
func mergeStored(stored, incoming domain.Article) domain.Article {
	merged := incoming
	if stored.PublishedAt.Before(incoming.PublishedAt) && !stored.PublishedAt.IsZero() {
		merged = stored
		merged.RelevanceScore = incoming.RelevanceScore
		merged.SentimentLabel = incoming.SentimentLabel
		merged.SentimentConfidence = incoming.SentimentConfidence
	}
	for _, src := range stored.Sources {
		if !containsString(merged.Sources, src) {
			merged.Sources = append(merged.Sources, src)
		}
	}
	for _, src := range incoming.Sources {
		if !containsString(merged.Sources, src) {
			merged.Sources = append(merged.Sources, src)
		}
	}
	if stored.Reported {
		merged.Reported = true
		merged.ReportedAt = stored.ReportedAt
	}
	return merged
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
