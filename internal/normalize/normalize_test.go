package normalize

import (
	"errors"
	"testing"
	"time"

	"HKNewsDigest/internal/domain"
)

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"casing and spacing", "  Tencent   POSTS Record Profit ", "tencent posts record profit"},
		{"punctuation stripped", "Tencent: profit up 20%!", "tencent profit up 20"},
		{"fullwidth folded", "Ｔｅｎｃｅｎｔ　ｐｒｏｆｉｔ", "tencent profit"},
		{"boilerplate prefix cut", "UPDATE: Tencent buys studio", "tencent buys studio"},
		{"publisher suffix cut", "Tencent buys studio - Reuters", "tencent buys studio"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeTitle(tc.in); got != tc.want {
				t.Fatalf("NormalizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDedupKeyDayGranularity(t *testing.T) {
	t.Parallel()

	morning := time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 8, 28, 21, 30, 0, 0, time.UTC)
	nextDay := evening.Add(6 * time.Hour)

	a := DedupKey("Tencent Posts Record Profit", "0700.HK", morning)
	b := DedupKey("TENCENT posts record profit!", "0700.HK", evening)
	if a != b {
		t.Fatalf("same day variants should share a key: %q vs %q", a, b)
	}

	c := DedupKey("Tencent Posts Record Profit", "0700.HK", nextDay)
	if a == c {
		t.Fatalf("different days must not share a key: %q", c)
	}

	d := DedupKey("Tencent Posts Record Profit", "0005.HK", morning)
	if a == d {
		t.Fatalf("different tickers must not share a key: %q", d)
	}
}

func TestNormalizeRejectsUnusable(t *testing.T) {
	t.Parallel()

	n := New()
	now := time.Now()

	_, err := n.Normalize(domain.RawRecord{Source: "yahoo-finance", Title: "   "}, now)
	if !errors.Is(err, ErrUnusable) {
		t.Fatalf("expected ErrUnusable for empty title, got %v", err)
	}

	_, err = n.Normalize(domain.RawRecord{Title: "something"}, now)
	if !errors.Is(err, ErrUnusable) {
		t.Fatalf("expected ErrUnusable for missing source, got %v", err)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	n := New()
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	article, err := n.Normalize(domain.RawRecord{
		Source: "google-news",
		Ticker: "0700.HK",
		Title:  "Tencent expands cloud unit",
		URL:    "https://example.com/a",
	}, now)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if !article.PublishedAt.Equal(now) {
		t.Fatalf("zero publish time should default to fetch time, got %v", article.PublishedAt)
	}
	if article.Language != "en" {
		t.Fatalf("expected language en, got %s", article.Language)
	}
	if len(article.Sources) != 1 || article.Sources[0] != "google-news" {
		t.Fatalf("expected source attribution, got %v", article.Sources)
	}
	if article.SourceID == "" || article.DedupKey == "" {
		t.Fatalf("identity fields must be populated: %q %q", article.SourceID, article.DedupKey)
	}
}

func TestNormalizeDetectsChineseAndRumor(t *testing.T) {
	t.Parallel()

	n := New()
	article, err := n.Normalize(domain.RawRecord{
		Source: "google-news",
		Ticker: "0700.HK",
		Title:  "市场传闻:腾讯据悉考虑收购游戏公司",
	}, time.Now())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if article.Language != "zh" {
		t.Fatalf("expected language zh, got %s", article.Language)
	}
	if !article.IsRumor {
		t.Fatal("expected rumor flag for speculation markers")
	}
	if article.RumorConfidence <= 0 || article.RumorConfidence > 0.8 {
		t.Fatalf("rumor confidence out of range: %v", article.RumorConfidence)
	}
}

func TestSourceIDStableWithoutNativeID(t *testing.T) {
	t.Parallel()

	raw := domain.RawRecord{Source: "yahoo-finance", Title: "T", URL: "https://example.com/x"}
	if sourceID(raw) != sourceID(raw) {
		t.Fatal("sourceID must be deterministic")
	}

	withID := domain.RawRecord{Source: "yahoo-finance", NativeID: "abc123"}
	if got := sourceID(withID); got != "yahoo-finance:abc123" {
		t.Fatalf("unexpected sourceID: %s", got)
	}
}
