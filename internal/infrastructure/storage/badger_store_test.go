package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"HKNewsDigest/internal/domain"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	store, err := OpenBadger(filepath.Join(t.TempDir(), "db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func storedArticle(key string) domain.Article {
	return domain.Article{
		DedupKey:      key,
		Ticker:        "0700.HK",
		TitleOriginal: "Tencent announces buyback",
		Sources:       []string{"hkexnews"},
		PublishedAt:   time.Now().Add(-time.Hour),
	}
}

func TestUpsertAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, storedArticle("k1")))

	got, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Tencent announces buyback", got.TitleOriginal)

	_, found, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)
}

func TestUpsertMergesAttributionAndKeepsReported(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := storedArticle("k1")
	require.NoError(t, store.Upsert(ctx, first))
	require.NoError(t, store.MarkReported(ctx, []string{"k1"}, time.Now()))

	second := storedArticle("k1")
	second.Sources = []string{"yahoo-finance"}
	second.PublishedAt = first.PublishedAt.Add(30 * time.Minute)
	second.RelevanceScore = 2.5
	require.NoError(t, store.Upsert(ctx, second))

	got, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)

	require.ElementsMatch(t, []string{"hkexnews", "yahoo-finance"}, got.Sources)
	require.True(t, got.PublishedAt.Equal(first.PublishedAt), "earliest publication must win")
	require.Equal(t, 2.5, got.RelevanceScore, "latest scoring must win")
	require.True(t, got.Reported, "reported state must be sticky")
}

func TestHasSeenAndSeenKeysWindow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, storedArticle("k1")))

	seen, err := store.HasSeen(ctx, "k1", time.Hour)
	require.NoError(t, err)
	require.True(t, seen)

	seen, err = store.HasSeen(ctx, "unknown", time.Hour)
	require.NoError(t, err)
	require.False(t, seen)

	keys, err := store.SeenKeys(ctx, time.Hour)
	require.NoError(t, err)
	require.Empty(t, keys, "unreported articles must resurface for the next run")

	require.NoError(t, store.MarkReported(ctx, []string{"k1"}, time.Now()))
	keys, err = store.SeenKeys(ctx, time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"k1"}, keys)
}

func TestMarkReportedIsAtomic(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, storedArticle("k1")))

	err := store.MarkReported(ctx, []string{"k1", "missing"}, time.Now())
	require.Error(t, err, "a missing key must fail the whole batch")

	got, _, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.False(t, got.Reported, "failed batch must not leave partial marks")
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, storedArticle("k1")))

	pruned, err := store.Prune(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, pruned, "recent records survive")

	pruned, err = store.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, pruned)

	_, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	a := storedArticle("k1")
	a.SentimentLabel = domain.SentimentPositive
	a.IsRumor = true
	require.NoError(t, store.Upsert(ctx, a))

	b := storedArticle("k2")
	b.Sources = []string{"google-news"}
	b.SentimentLabel = domain.SentimentNegative
	require.NoError(t, store.Upsert(ctx, b))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalArticles)
	require.Equal(t, 1, stats.Rumors)
	require.Equal(t, 1, stats.SentimentBreakdown[domain.SentimentPositive])
	require.Equal(t, 1, stats.SourceBreakdown["google-news"])
}

func TestRunLockExclusion(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AcquireRunLock(ctx, "run-a", time.Minute))

	err := store.AcquireRunLock(ctx, "run-b", time.Minute)
	require.ErrorIs(t, err, ErrRunLocked)

	// Re-acquiring by the owner extends the lease.
	require.NoError(t, store.AcquireRunLock(ctx, "run-a", time.Minute))

	require.NoError(t, store.ReleaseRunLock(ctx, "run-a"))
	require.NoError(t, store.AcquireRunLock(ctx, "run-b", time.Minute))
}

func TestRunLockExpiryReclaim(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AcquireRunLock(ctx, "crashed-run", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, store.AcquireRunLock(ctx, "run-b", time.Minute))
}

func TestReleaseRunLockIgnoresForeignOwner(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AcquireRunLock(ctx, "run-a", time.Minute))
	require.NoError(t, store.ReleaseRunLock(ctx, "run-b"))

	err := store.AcquireRunLock(ctx, "run-c", time.Minute)
	require.ErrorIs(t, err, ErrRunLocked, "foreign release must not drop the lock")
}

func TestSaveRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := domain.RunRecord{ID: "r1", Stage: domain.StageDone, StartedAt: time.Now()}
	require.NoError(t, store.SaveRun(ctx, run))

	run.Stage = domain.StageFailed
	require.NoError(t, store.SaveRun(ctx, run), "saving twice must upsert")
}

func TestRecentRunsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveRun(ctx, domain.RunRecord{
			ID:        string(rune('a' + i)),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Stage:     domain.StageDone,
		}))
	}

	runs, err := store.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "c", runs[0].ID)
	require.Equal(t, "b", runs[1].ID)
}
