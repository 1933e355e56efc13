package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"HKNewsDigest/internal/domain"
	"HKNewsDigest/internal/ports"
)

const (
	yahooFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline"
	yahooName    = "yahoo-finance"
)

// YahooFeed pulls the per-ticker Yahoo Finance headline RSS feed.
type YahooFeed struct {
	parser      *gofeed.Parser
	limiter     *rate.Limiter
	logger      *slog.Logger
	maxArticles int

	feedURL func(ticker string) string
}

var _ ports.SourceAdapter = (*YahooFeed)(nil)

// NewYahooFeed builds the adapter; maxArticles bounds items per ticker.
func NewYahooFeed(maxArticles int, logger *slog.Logger) *YahooFeed {
	if maxArticles <= 0 {
		maxArticles = 50
	}
	parser := gofeed.NewParser()
	parser.UserAgent = "HKNewsDigest/1.0"
	return &YahooFeed{
		parser:      parser,
		limiter:     rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		logger:      logger,
		maxArticles: maxArticles,
		feedURL: func(ticker string) string {
			return fmt.Sprintf("%s?s=%s&region=US&lang=en-US", yahooFeedURL, ticker)
		},
	}
}

// Name identifies the adapter in attribution and degradation reports.
func (y *YahooFeed) Name() string {
	return yahooName
}

// Fetch parses the headline feed for every watchlist entry. Items older
// than the lookback window are skipped at the adapter already.
func (y *YahooFeed) Fetch(ctx context.Context, watchlist []domain.WatchlistEntry, lookback time.Duration) ([]domain.RawRecord, error) {
	cutoff := time.Now().Add(-lookback)

	var records []domain.RawRecord
	var lastErr error

	for _, entry := range watchlist {
		if err := y.limiter.Wait(ctx); err != nil {
			return records, fmt.Errorf("rate limit wait: %w", err)
		}

		feed, err := y.parser.ParseURLWithContext(y.feedURL(entry.Ticker), ctx)
		if err != nil {
			lastErr = fmt.Errorf("ticker %s: %w", entry.Ticker, err)
			y.debug("yahoo feed failed", "ticker", entry.Ticker, "error", err)
			continue
		}

		count := 0
		for _, item := range feed.Items {
			if count >= y.maxArticles {
				break
			}
			record, ok := feedItemRecord(item, yahooName, entry, cutoff)
			if !ok {
				continue
			}
			records = append(records, record)
			count++
		}
		y.debug("yahoo scanned", "ticker", entry.Ticker, "records", count)
	}

	if len(records) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return records, nil
}

func (y *YahooFeed) debug(msg string, args ...any) {
	if y.logger != nil {
		y.logger.Debug(msg, args...)
	}
}

// feedItemRecord converts one RSS item; items without a title or published
// before the cutoff are dropped.
func feedItemRecord(item *gofeed.Item, source string, entry domain.WatchlistEntry, cutoff time.Time) (domain.RawRecord, bool) {
	if item == nil || item.Title == "" {
		return domain.RawRecord{}, false
	}

	var publishedAt time.Time
	if item.PublishedParsed != nil {
		publishedAt = *item.PublishedParsed
		if publishedAt.Before(cutoff) {
			return domain.RawRecord{}, false
		}
	}

	return domain.RawRecord{
		Source:      source,
		NativeID:    item.GUID,
		Ticker:      entry.Ticker,
		CompanyName: entry.CompanyName,
		Title:       item.Title,
		Body:        item.Description,
		URL:         item.Link,
		PublishedAt: publishedAt,
	}, true
}
