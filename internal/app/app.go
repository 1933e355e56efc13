// Package app assembles configuration, adapters and use cases into a
// runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"HKNewsDigest/internal/config"
	"HKNewsDigest/internal/domain"
	"HKNewsDigest/internal/infrastructure/report"
	"HKNewsDigest/internal/infrastructure/scheduler"
	"HKNewsDigest/internal/infrastructure/source"
	"HKNewsDigest/internal/infrastructure/storage"
	"HKNewsDigest/internal/logging"
	"HKNewsDigest/internal/ports"
	"HKNewsDigest/internal/rank"
	"HKNewsDigest/internal/sentiment"
	"HKNewsDigest/internal/translate"
	"HKNewsDigest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    ports.StateStore
	pipeline *usecase.Pipeline
}

// New builds the application from validated configuration. The returned
// instance owns the state store; call Close when done.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := openStore(cfg.Database, baseLogger.With("component", "storage"))
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:    buildSources(cfg, baseLogger),
		Store:      store,
		Translator: buildTranslator(cfg.Translation, baseLogger.With("component", "translate")),
		Scorer:     buildScorer(cfg.Sentiment, baseLogger.With("component", "sentiment")),
		Renderer:   report.NewHTMLRenderer(),
		Sink:       buildSink(cfg, baseLogger),
		Ranker: rank.New(rank.Options{
			KeywordsImportant: cfg.Filtering.KeywordsImportant,
			KeywordsExclude:   cfg.Filtering.KeywordsExclude,
			TickerKeywords:    tickerKeywords(cfg.Watchlist),
			BoostPerKeyword:   cfg.Ranking.KeywordBoost,
			BoostCap:          cfg.Ranking.KeywordBoostCap,
			SentimentWeight:   cfg.Ranking.SentimentWeight,
			HalfLife:          time.Duration(cfg.Ranking.HalfLifeDays * 24 * float64(time.Hour)),
			Lookback:          cfg.Scraping.Lookback(),
		}),
		Options: usecase.RunOptions{
			Watchlist:    watchlistEntries(cfg.Watchlist),
			Lookback:     cfg.Scraping.Lookback(),
			FetchTimeout: cfg.Scraping.FetchTimeout(),
			MaxItems:     cfg.Report.MaxItems,
			RunLockTTL:   cfg.Report.RunLockTTL(),
			Retention:    time.Duration(cfg.Report.RetentionDays) * 24 * time.Hour,
		},
		Logger: baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		pipeline: pipeline,
	}, nil
}

// Run performs a single pipeline execution for the current day.
func (a *Application) Run(ctx context.Context) error {
	now := time.Now().In(a.cfg.Scheduler.Location())
	_, err := a.pipeline.Run(ctx, now)
	return err
}

// RunScheduled arms the cron scheduler and blocks until the context is
// cancelled, then tears the scheduler down.
func (a *Application) RunScheduled(ctx context.Context) error {
	driver := scheduler.NewCron(
		a.cfg.Scheduler.CronExpression,
		a.cfg.Scheduler.Location(),
		a.logger.With("component", "scheduler"),
	)
	sched := usecase.NewScheduler(driver, a.pipeline)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Close releases the state store.
func (a *Application) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func openStore(cfg config.DatabaseConfig, logger *slog.Logger) (ports.StateStore, error) {
	switch cfg.Driver {
	case "postgres":
		return storage.OpenPostgres(cfg.DSN)
	default:
		return storage.OpenBadger(cfg.Path, logger)
	}
}

func buildSources(cfg config.Config, baseLogger *slog.Logger) []ports.SourceAdapter {
	var sources []ports.SourceAdapter
	maxRows := cfg.Scraping.MaxArticlesPerSource

	if cfg.Scraping.HKEXEnabled {
		sources = append(sources, source.NewHKEXScanner(nil, maxRows, baseLogger.With("component", "source.hkex")))
	}
	if cfg.Scraping.YahooEnabled {
		sources = append(sources, source.NewYahooFeed(maxRows, baseLogger.With("component", "source.yahoo")))
	}
	if cfg.Scraping.GoogleNewsEnabled {
		sources = append(sources, source.NewGoogleNewsFeed(maxRows, baseLogger.With("component", "source.googlenews")))
	}
	return sources
}

// buildTranslator always yields a total gateway; without an HTTP backend the
// glossary fallback still anglicizes key financial phrases.
func buildTranslator(cfg config.TranslateConfig, logger *slog.Logger) ports.Translator {
	var backend ports.TranslationBackend
	if cfg.Enabled && cfg.Backend == "http" && cfg.APIURL != "" {
		backend = translate.NewHTTPClient(cfg.APIURL, time.Duration(cfg.TimeoutSeconds)*time.Second)
	}
	return translate.NewGateway(backend, nil, logger)
}

func buildScorer(cfg config.SentimentConfig, logger *slog.Logger) ports.SentimentScorer {
	var backend ports.SentimentBackend
	if cfg.Backend == "http" && cfg.APIURL != "" {
		backend = sentiment.NewHTTPClient(cfg.APIURL, cfg.Threshold, time.Duration(cfg.TimeoutSeconds)*time.Second)
	} else {
		backend = sentiment.NewLexicon()
	}
	return sentiment.NewGateway(backend, logger)
}

// buildSink always writes the HTML file; email delivery is added on top
// when configured.
func buildSink(cfg config.Config, baseLogger *slog.Logger) ports.ReportSink {
	file := report.NewFileSink(cfg.Report.OutputDir, baseLogger.With("component", "report.file"))
	if !cfg.Email.Enabled {
		return file
	}
	email := report.NewEmailSink(cfg.Email, baseLogger.With("component", "report.email"))
	return multiSink{file, email}
}

// multiSink fans one report out to several sinks; the first failure aborts
// so the batch is never marked reported after a partial delivery.
type multiSink []ports.ReportSink

func (m multiSink) Deliver(ctx context.Context, runDate time.Time, rendered ports.RenderedReport) error {
	for _, sink := range m {
		if err := sink.Deliver(ctx, runDate, rendered); err != nil {
			return err
		}
	}
	return nil
}

func tickerKeywords(items []config.WatchlistItem) map[string][]string {
	keywords := make(map[string][]string)
	for _, item := range items {
		if len(item.BoostKeywords) > 0 {
			keywords[item.Ticker] = item.BoostKeywords
		}
	}
	return keywords
}

func watchlistEntries(items []config.WatchlistItem) []domain.WatchlistEntry {
	entries := make([]domain.WatchlistEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, domain.WatchlistEntry{
			Ticker:        item.Ticker,
			CompanyName:   item.CompanyName,
			BoostKeywords: item.BoostKeywords,
		})
	}
	return entries
}
