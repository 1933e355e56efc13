package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"HKNewsDigest/internal/dedup"
	"HKNewsDigest/internal/domain"
	"HKNewsDigest/internal/normalize"
	"HKNewsDigest/internal/ports"
	"HKNewsDigest/internal/rank"
)

// RunOptions bounds one pipeline execution.
type RunOptions struct {
	Watchlist    []domain.WatchlistEntry
	Lookback     time.Duration
	FetchTimeout time.Duration
	MaxItems     int
	RunLockTTL   time.Duration
	Retention    time.Duration
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Sources    []ports.SourceAdapter
	Store      ports.StateStore
	Translator ports.Translator
	Scorer     ports.SentimentScorer
	Renderer   ports.ReportRenderer
	Sink       ports.ReportSink
	Ranker     *rank.Ranker
	Options    RunOptions
	Logger     *slog.Logger
}

// Pipeline implements the daily digest workflow as a staged state machine.
// Per-item failures are absorbed into counters; store and configuration
// failures abort the run.
type Pipeline struct {
	sources    []ports.SourceAdapter
	store      ports.StateStore
	translator ports.Translator
	scorer     ports.SentimentScorer
	renderer   ports.ReportRenderer
	sink       ports.ReportSink
	normalizer *normalize.Normalizer
	ranker     *rank.Ranker
	opts       RunOptions
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		sources:    deps.Sources,
		store:      deps.Store,
		translator: deps.Translator,
		scorer:     deps.Scorer,
		renderer:   deps.Renderer,
		sink:       deps.Sink,
		normalizer: normalize.New(),
		ranker:     deps.Ranker,
		opts:       deps.Options,
		logger:     deps.Logger,
	}
}

type fetchResult struct {
	source  string
	records []domain.RawRecord
	err     error
}

// Run executes one full pipeline pass. Re-running with overlapping source
// data reports nothing twice: keys reported within the lookback window are
// dropped before ranking and successful delivery marks the batch reported.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (domain.RunRecord, error) {
	run := domain.RunRecord{
		ID:        uuid.NewString(),
		StartedAt: now,
	}

	if p.store == nil {
		return p.fail(ctx, run, domain.StageFetching, errors.New("state store is not configured"))
	}

	if err := p.store.AcquireRunLock(ctx, run.ID, p.opts.RunLockTTL); err != nil {
		return p.fail(ctx, run, domain.StageFetching, fmt.Errorf("acquire run lock: %w", err))
	}
	defer func() {
		if err := p.store.ReleaseRunLock(context.WithoutCancel(ctx), run.ID); err != nil {
			p.warn("release run lock failed", "error", err)
		}
	}()

	// FETCHING: adapters fan out but join before normalization, since the
	// deduplicator needs the complete candidate set for the run.
	run.Stage = domain.StageFetching
	raw := p.fetchAll(ctx, &run)
	run.Counters.Fetched = len(raw)

	run.Stage = domain.StageNormalizing
	articles := p.normalizeAll(raw, now, &run)

	run.Stage = domain.StageDeduplicating
	seenKeys, err := p.store.SeenKeys(ctx, p.opts.Lookback)
	if err != nil {
		return p.fail(ctx, run, domain.StageDeduplicating, fmt.Errorf("load seen keys: %w", err))
	}
	deduper := dedup.New(seenKeys)
	for _, article := range articles {
		switch deduper.Add(article) {
		case dedup.OutcomeMerged, dedup.OutcomeSeen:
			run.Counters.Duplicates++
		}
	}
	canonical := deduper.Canonical()

	run.Stage = domain.StageTranslating
	for i := range canonical {
		p.translateArticle(ctx, &canonical[i], &run)
	}

	run.Stage = domain.StageScoring
	for i := range canonical {
		sentiment := p.scorer.Score(ctx, canonical[i].Title()+" "+canonical[i].Body())
		canonical[i].SentimentLabel = sentiment.Label
		canonical[i].SentimentConfidence = sentiment.Confidence
		run.Counters.Scored++
	}

	run.Stage = domain.StageRanking
	var candidates []domain.Article
	for i := range canonical {
		if p.ranker.Excluded(canonical[i]) {
			run.Counters.Excluded++
			continue
		}
		score, fresh := p.ranker.Score(canonical[i], now)
		if !fresh {
			run.Counters.Excluded++
			continue
		}
		canonical[i].RelevanceScore = score
		canonical[i].MatchedKeywords = p.ranker.MatchedKeywords(canonical[i])
		candidates = append(candidates, canonical[i])
	}
	selection := rank.Top(candidates, p.opts.MaxItems)

	run.Stage = domain.StagePersisting
	for _, article := range canonical {
		if err := p.store.Upsert(ctx, article); err != nil {
			return p.fail(ctx, run, domain.StagePersisting, fmt.Errorf("persist article: %w", err))
		}
	}

	run.Stage = domain.StageReporting
	if err := p.emitReport(ctx, now, selection, &run); err != nil {
		return p.fail(ctx, run, domain.StageReporting, err)
	}

	if p.opts.Retention > 0 {
		if pruned, err := p.store.Prune(ctx, now.Add(-p.opts.Retention)); err != nil {
			p.warn("prune failed", "error", err)
		} else if pruned > 0 {
			p.info("pruned stale records", "count", pruned)
		}
	}

	run.Stage = domain.StageDone
	run.FinishedAt = time.Now()
	if err := p.store.SaveRun(ctx, run); err != nil {
		p.warn("save run record failed", "error", err)
	}

	p.info("run complete",
		"run", run.ID,
		"fetched", run.Counters.Fetched,
		"dropped", run.Counters.Dropped,
		"duplicates", run.Counters.Duplicates,
		"excluded", run.Counters.Excluded,
		"reported", run.Counters.Reported,
		"degraded_sources", run.DegradedSources,
	)
	return run, nil
}

// fetchAll runs every adapter concurrently with a bounded timeout; a failed
// adapter degrades the run instead of aborting it.
func (p *Pipeline) fetchAll(ctx context.Context, run *domain.RunRecord) []domain.RawRecord {
	results := make(chan fetchResult, len(p.sources))
	var wg sync.WaitGroup

	for _, adapter := range p.sources {
		wg.Add(1)
		go func(adapter ports.SourceAdapter) {
			defer wg.Done()

			fetchCtx := ctx
			if p.opts.FetchTimeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, p.opts.FetchTimeout)
				defer cancel()
			}

			records, err := adapter.Fetch(fetchCtx, p.opts.Watchlist, p.opts.Lookback)
			results <- fetchResult{source: adapter.Name(), records: records, err: err}
		}(adapter)
	}

	wg.Wait()
	close(results)

	var raw []domain.RawRecord
	for result := range results {
		if result.err != nil {
			run.DegradedSources = append(run.DegradedSources, result.source)
			p.warn("source degraded", "source", result.source, "error", result.err)
		}
		raw = append(raw, result.records...)
	}
	return raw
}

func (p *Pipeline) normalizeAll(raw []domain.RawRecord, now time.Time, run *domain.RunRecord) []domain.Article {
	articles := make([]domain.Article, 0, len(raw))
	for _, record := range raw {
		article, err := p.normalizer.Normalize(record, now)
		if err != nil {
			run.Counters.Dropped++
			continue
		}
		articles = append(articles, article)
	}
	return articles
}

func (p *Pipeline) translateArticle(ctx context.Context, article *domain.Article, run *domain.RunRecord) {
	article.TitleEN = p.translator.Translate(ctx, article.TitleOriginal, article.Language)
	if article.BodyOriginal != "" {
		article.BodyEN = p.translator.Translate(ctx, article.BodyOriginal, article.Language)
	}
	if article.Language == "zh" {
		run.Counters.Translated++
	}
}

// emitReport renders the selection, delivers it, and only then marks the
// batch reported so a failed delivery never loses articles.
func (p *Pipeline) emitReport(ctx context.Context, now time.Time, selection []domain.Article, run *domain.RunRecord) error {
	stats, err := p.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}

	rendered, err := p.renderer.Render(now, selection, stats)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if err := p.sink.Deliver(ctx, now, rendered); err != nil {
		return fmt.Errorf("deliver report: %w", err)
	}

	if len(selection) > 0 {
		keys := make([]string, 0, len(selection))
		for _, article := range selection {
			keys = append(keys, article.DedupKey)
		}
		if err := p.store.MarkReported(ctx, keys, now); err != nil {
			return fmt.Errorf("mark reported: %w", err)
		}
	}
	run.Counters.Reported = len(selection)
	return nil
}

// fail transitions to the terminal state, recording the stage reached and
// the work done before the failure.
func (p *Pipeline) fail(ctx context.Context, run domain.RunRecord, stage domain.RunStage, err error) (domain.RunRecord, error) {
	run.Stage = domain.StageFailed
	run.FinishedAt = time.Now()
	run.Err = fmt.Sprintf("%s: %v", stage, err)

	if p.store != nil {
		if saveErr := p.store.SaveRun(context.WithoutCancel(ctx), run); saveErr != nil {
			p.warn("save failed-run record", "error", saveErr)
		}
	}

	p.logError("run failed", "run", run.ID, "stage", string(stage), "error", err,
		"fetched", run.Counters.Fetched, "reported", run.Counters.Reported)
	return run, fmt.Errorf("run failed at %s: %w", stage, err)
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) logError(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
