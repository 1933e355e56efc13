package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"HKNewsDigest/internal/domain"
)

const hkexListingHTML = `
<div class="search-results">
  <div class="row">
    <div class="col-date">28/08/2026 17:35</div>
    <div class="col-dn-title"><a href="/listedco/0700/ann1.pdf">Monthly Return of Equity Issuer</a></div>
  </div>
  <div class="row">
    <div class="col-date">28/08/2026</div>
    <div class="col-dn-title"><a href="https://www1.hkexnews.hk/listedco/0700/ann2.pdf">Announcement of Share Buyback</a></div>
  </div>
  <div class="row">
    <div class="col-date"></div>
    <div class="col-dn-title"><a href="/broken.pdf">Row without a date is skipped</a></div>
  </div>
</div>`

func TestHKEXFetchParsesListing(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"stockId":      r.URL.Query().Get("stockId"),
			"documentType": r.URL.Query().Get("documentType"),
			"rowRange":     r.URL.Query().Get("rowRange"),
		}
		_, _ = w.Write([]byte(hkexListingHTML))
	}))
	defer server.Close()

	scanner := NewHKEXScanner(server.Client(), 10, nil)
	scanner.searchURL = server.URL

	watchlist := []domain.WatchlistEntry{{Ticker: "0700.HK", CompanyName: "Tencent"}}
	records, err := scanner.Fetch(context.Background(), watchlist, 24*time.Hour)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if gotQuery["stockId"] != "00700" {
		t.Fatalf("stockId should be zero-padded to 5 digits, got %s", gotQuery["stockId"])
	}
	if gotQuery["documentType"] != "-1" || gotQuery["rowRange"] != "10" {
		t.Fatalf("unexpected query: %v", gotQuery)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records (dateless row skipped), got %d", len(records))
	}

	first := records[0]
	if first.Source != "hkexnews" || first.Ticker != "0700.HK" {
		t.Fatalf("unexpected attribution: %+v", first)
	}
	if first.Title != "Monthly Return of Equity Issuer" {
		t.Fatalf("unexpected title: %s", first.Title)
	}
	if first.URL != "https://www1.hkexnews.hk/listedco/0700/ann1.pdf" {
		t.Fatalf("relative link must be absolutized, got %s", first.URL)
	}

	want := time.Date(2026, 8, 28, 17, 35, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Fatalf("published = %v, want %v", first.PublishedAt, want)
	}
}

func TestHKEXFetchServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	scanner := NewHKEXScanner(server.Client(), 10, nil)
	scanner.searchURL = server.URL

	_, err := scanner.Fetch(context.Background(),
		[]domain.WatchlistEntry{{Ticker: "0700.HK"}}, 24*time.Hour)
	if err == nil {
		t.Fatal("expected error when every ticker fails")
	}
}

func TestParseHKEXDate(t *testing.T) {
	t.Parallel()

	if got := parseHKEXDate("05/01/2026 09:30"); got.Day() != 5 || got.Month() != time.January {
		t.Fatalf("day-first parsing broken: %v", got)
	}
	if got := parseHKEXDate("not a date"); !got.IsZero() {
		t.Fatalf("unparseable date must stay zero, got %v", got)
	}
}

func TestStockCode(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"0700.HK": "00700",
		"9988.HK": "09988",
		"5.HK":    "00005",
	}
	for in, want := range cases {
		if got := stockCode(in); got != want {
			t.Fatalf("stockCode(%q) = %q, want %q", in, got, want)
		}
	}
}
