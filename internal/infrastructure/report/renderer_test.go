package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"HKNewsDigest/internal/domain"
	"HKNewsDigest/internal/ports"
)

func digestArticles(now time.Time) []domain.Article {
	return []domain.Article{
		{
			Ticker:              "0700.HK",
			CompanyName:         "Tencent",
			TitleOriginal:       "腾讯宣布回购",
			TitleEN:             "Tencent announces buyback",
			URL:                 "https://example.com/a",
			Sources:             []string{"hkexnews", "yahoo-finance"},
			PublishedAt:         now.Add(-2 * time.Hour),
			SentimentLabel:      domain.SentimentPositive,
			SentimentConfidence: 0.8,
			RelevanceScore:      1.98,
			MatchedKeywords:     []string{"buyback"},
		},
		{
			Ticker:          "0700.HK",
			CompanyName:     "Tencent",
			TitleOriginal:   "Tencent takeover whispers grow",
			Sources:         []string{"google-news"},
			PublishedAt:     now.Add(-time.Hour),
			SentimentLabel:  domain.SentimentNeutral,
			IsRumor:         true,
			RumorConfidence: 0.4,
			RelevanceScore:  1.1,
		},
	}
}

func TestRenderDigest(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	stats := domain.StoreStats{TotalArticles: 42, ArticlesToday: 5, Rumors: 3}

	rendered, err := NewHTMLRenderer().Render(now, digestArticles(now), stats)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if rendered.Subject != "HKEX News Digest - 28 Aug 2026" {
		t.Fatalf("unexpected subject: %s", rendered.Subject)
	}

	html := rendered.HTML
	for _, want := range []string{
		"Tencent announces buyback",
		"badge-positive",
		"badge-rumor",
		"hkexnews",
		"42",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("html missing %q", want)
		}
	}

	if !strings.Contains(rendered.Text, "Tencent announces buyback") {
		t.Fatalf("plain text variant missing headline: %s", rendered.Text)
	}
}

func TestRenderEmptyDigest(t *testing.T) {
	t.Parallel()

	rendered, err := NewHTMLRenderer().Render(time.Now(), nil, domain.StoreStats{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(rendered.HTML, "No new articles passed the filters") {
		t.Fatalf("empty digest must render the empty state, got %s", rendered.HTML)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	t.Parallel()

	now := time.Now()
	articles := []domain.Article{{
		Ticker:        "0700.HK",
		TitleOriginal: `<script>alert("x")</script>`,
		Sources:       []string{"google-news"},
		PublishedAt:   now,
	}}

	rendered, err := NewHTMLRenderer().Render(now, articles, domain.StoreStats{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(rendered.HTML, "<script>alert") {
		t.Fatal("titles must be escaped")
	}
}

func TestFileSinkWritesDatedReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink := NewFileSink(dir, nil)
	runDate := time.Date(2026, 8, 28, 7, 0, 0, 0, time.UTC)

	err := sink.Deliver(context.Background(), runDate, ports.RenderedReport{HTML: "<html>digest</html>"})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "report_20260828.html"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if string(raw) != "<html>digest</html>" {
		t.Fatalf("unexpected content: %s", raw)
	}
}
