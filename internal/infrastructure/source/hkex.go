package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"HKNewsDigest/internal/domain"
	"HKNewsDigest/internal/ports"
)

const (
	hkexBaseURL   = "https://www1.hkexnews.hk"
	hkexSearchURL = hkexBaseURL + "/search/titlesearch.xhtml"
	hkexName      = "hkexnews"
)

// HKEXScanner crawls official HKEXnews announcement listings per watchlist
// ticker. Announcements carry no body; the title is the content.
type HKEXScanner struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	maxRows int

	searchURL string
}

var _ ports.SourceAdapter = (*HKEXScanner)(nil)

// NewHKEXScanner wires an HTTP client; maxRows bounds results per ticker.
func NewHKEXScanner(client *http.Client, maxRows int, logger *slog.Logger) *HKEXScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if maxRows <= 0 {
		maxRows = 50
	}
	return &HKEXScanner{
		client:    client,
		limiter:   rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		logger:    logger,
		maxRows:   maxRows,
		searchURL: hkexSearchURL,
	}
}

// Name identifies the adapter in attribution and degradation reports.
func (h *HKEXScanner) Name() string {
	return hkexName
}

// Fetch queries the announcement title search for every watchlist entry.
func (h *HKEXScanner) Fetch(ctx context.Context, watchlist []domain.WatchlistEntry, lookback time.Duration) ([]domain.RawRecord, error) {
	var records []domain.RawRecord
	var lastErr error

	for _, entry := range watchlist {
		if err := h.limiter.Wait(ctx); err != nil {
			return records, fmt.Errorf("rate limit wait: %w", err)
		}

		tickerRecords, err := h.fetchTicker(ctx, entry, lookback)
		if err != nil {
			lastErr = fmt.Errorf("ticker %s: %w", entry.Ticker, err)
			h.debug("hkex ticker failed", "ticker", entry.Ticker, "error", err)
			continue
		}
		records = append(records, tickerRecords...)
	}

	if len(records) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return records, nil
}

func (h *HKEXScanner) fetchTicker(ctx context.Context, entry domain.WatchlistEntry, lookback time.Duration) ([]domain.RawRecord, error) {
	now := time.Now()
	query := url.Values{}
	query.Set("sortDir", "0")
	query.Set("sortByOptions", "DateTime")
	query.Set("dateOfReleaseFrom", now.Add(-lookback).Format("20060102"))
	query.Set("dateOfReleaseTo", now.Format("20060102"))
	query.Set("stockId", stockCode(entry.Ticker))
	query.Set("documentType", "-1")
	query.Set("rowRange", fmt.Sprintf("%d", h.maxRows))

	doc, err := h.fetchDocument(ctx, h.searchURL+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var records []domain.RawRecord
	doc.Find("div.row").Each(func(_ int, row *goquery.Selection) {
		record, ok := parseAnnouncementRow(row, entry)
		if !ok {
			return
		}
		if len(records) < h.maxRows {
			records = append(records, record)
		}
	})

	h.debug("hkex scanned", "ticker", entry.Ticker, "records", len(records))
	return records, nil
}

func (h *HKEXScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "HKNewsDigest/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hkexnews returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func parseAnnouncementRow(row *goquery.Selection, entry domain.WatchlistEntry) (domain.RawRecord, bool) {
	dateText := strings.TrimSpace(row.Find("div.col-date").First().Text())
	if dateText == "" {
		return domain.RawRecord{}, false
	}

	link := row.Find("div.col-dn-title a").First()
	title := strings.TrimSpace(link.Text())
	if title == "" {
		return domain.RawRecord{}, false
	}

	docURL, _ := link.Attr("href")
	if docURL != "" && !strings.HasPrefix(docURL, "http") {
		docURL = hkexBaseURL + docURL
	}

	return domain.RawRecord{
		Source:      hkexName,
		Ticker:      entry.Ticker,
		CompanyName: entry.CompanyName,
		Title:       title,
		URL:         docURL,
		PublishedAt: parseHKEXDate(dateText),
	}, true
}

// parseHKEXDate handles the listing formats DD/MM/YYYY HH:MM and
// DD/MM/YYYY; unparseable dates are left zero for the normalizer.
func parseHKEXDate(text string) time.Time {
	for _, layout := range []string{"02/01/2006 15:04", "02/01/2006"} {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// stockCode strips the .HK suffix and zero-pads to the 5-digit form the
// search endpoint expects.
func stockCode(ticker string) string {
	code := strings.TrimSuffix(ticker, ".HK")
	code = strings.ReplaceAll(code, ".", "")
	for len(code) < 5 {
		code = "0" + code
	}
	return code
}

func (h *HKEXScanner) debug(msg string, args ...any) {
	if h.logger != nil {
		h.logger.Debug(msg, args...)
	}
}
