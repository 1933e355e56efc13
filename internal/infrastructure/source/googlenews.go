package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"HKNewsDigest/internal/domain"
	"HKNewsDigest/internal/ports"
)

const (
	googleNewsURL  = "https://news.google.com/rss/search"
	googleNewsName = "google-news"
)

// GoogleNewsFeed searches the Google News RSS endpoint per company. It is
// the rumor-heavy source: plain web news rather than filings.
type GoogleNewsFeed struct {
	parser      *gofeed.Parser
	limiter     *rate.Limiter
	logger      *slog.Logger
	maxArticles int

	searchURL func(query string) string
}

var _ ports.SourceAdapter = (*GoogleNewsFeed)(nil)

// NewGoogleNewsFeed builds the adapter; maxArticles bounds items per ticker.
func NewGoogleNewsFeed(maxArticles int, logger *slog.Logger) *GoogleNewsFeed {
	if maxArticles <= 0 {
		maxArticles = 50
	}
	parser := gofeed.NewParser()
	parser.UserAgent = "HKNewsDigest/1.0"
	return &GoogleNewsFeed{
		parser:      parser,
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
		logger:      logger,
		maxArticles: maxArticles,
		searchURL: func(query string) string {
			return fmt.Sprintf("%s?q=%s&hl=en-US&gl=US&ceid=US:en", googleNewsURL, url.QueryEscape(query))
		},
	}
}

// Name identifies the adapter in attribution and degradation reports.
func (g *GoogleNewsFeed) Name() string {
	return googleNewsName
}

// Fetch queries news for each watchlist company by display name.
func (g *GoogleNewsFeed) Fetch(ctx context.Context, watchlist []domain.WatchlistEntry, lookback time.Duration) ([]domain.RawRecord, error) {
	cutoff := time.Now().Add(-lookback)
	lookbackDays := int(lookback.Hours()/24 + 0.5)
	if lookbackDays < 1 {
		lookbackDays = 1
	}

	var records []domain.RawRecord
	var lastErr error

	for _, entry := range watchlist {
		if err := g.limiter.Wait(ctx); err != nil {
			return records, fmt.Errorf("rate limit wait: %w", err)
		}

		name := entry.DisplayName()
		query := fmt.Sprintf("%s stock OR %s shares when:%dd", name, name, lookbackDays)

		feed, err := g.parser.ParseURLWithContext(g.searchURL(query), ctx)
		if err != nil {
			lastErr = fmt.Errorf("ticker %s: %w", entry.Ticker, err)
			g.debug("google news query failed", "ticker", entry.Ticker, "error", err)
			continue
		}

		count := 0
		for _, item := range feed.Items {
			if count >= g.maxArticles {
				break
			}
			record, ok := feedItemRecord(item, googleNewsName, entry, cutoff)
			if !ok {
				continue
			}
			records = append(records, record)
			count++
		}
		g.debug("google news scanned", "ticker", entry.Ticker, "records", count)
	}

	if len(records) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return records, nil
}

func (g *GoogleNewsFeed) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
