// Package report renders the ranked digest and delivers it via SMTP or a
// local file.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"HKNewsDigest/internal/domain"
	"HKNewsDigest/internal/ports"
)

// HTMLRenderer renders the digest as an HTML email with a plain text fallback.
type HTMLRenderer struct {
	tmpl *template.Template
}

var _ ports.ReportRenderer = (*HTMLRenderer)(nil)

// NewHTMLRenderer creates a renderer with the default digest template.
func NewHTMLRenderer() *HTMLRenderer {
	t := template.Must(template.New("digest").Funcs(template.FuncMap{
		"score": func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"join":  strings.Join,
	}).Parse(digestHTMLTemplate))
	return &HTMLRenderer{tmpl: t}
}

type digestView struct {
	Date     string
	Articles []articleView
	Stats    domain.StoreStats
}

type articleView struct {
	Title       string
	Ticker      string
	URL         string
	Sources     []string
	PublishedAt string
	Sentiment   string
	Confidence  string
	Relevance   string
	Keywords    []string
	IsRumor     bool
	Body        string
}

// Render produces the digest document for one run date.
func (r *HTMLRenderer) Render(runDate time.Time, articles []domain.Article, stats domain.StoreStats) (ports.RenderedReport, error) {
	view := digestView{
		Date:  runDate.Format("Monday, 02 Jan 2006"),
		Stats: stats,
	}
	for _, a := range articles {
		view.Articles = append(view.Articles, articleView{
			Title:       a.Title(),
			Ticker:      a.Ticker,
			URL:         a.URL,
			Sources:     a.Sources,
			PublishedAt: a.PublishedAt.Format("02 Jan 2006 15:04"),
			Sentiment:   string(a.SentimentLabel),
			Confidence:  fmt.Sprintf("%.0f%%", a.SentimentConfidence*100),
			Relevance:   fmt.Sprintf("%.2f", a.RelevanceScore),
			Keywords:    a.MatchedKeywords,
			IsRumor:     a.IsRumor,
			Body:        excerpt(a.Body(), 280),
		})
	}

	var htmlBuf bytes.Buffer
	if err := r.tmpl.Execute(&htmlBuf, view); err != nil {
		return ports.RenderedReport{}, fmt.Errorf("render digest template: %w", err)
	}

	return ports.RenderedReport{
		Subject: fmt.Sprintf("HKEX News Digest - %s", runDate.Format("02 Jan 2006")),
		HTML:    htmlBuf.String(),
		Text:    renderPlainText(view),
	}, nil
}

// renderPlainText produces a readable fallback for clients without HTML.
func renderPlainText(view digestView) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("HKEX News Digest - %s\n", view.Date))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	if len(view.Articles) == 0 {
		sb.WriteString("No new articles passed the filters today.\n")
	}

	for i, a := range view.Articles {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, a.Title))
		if a.Ticker != "" {
			sb.WriteString(fmt.Sprintf("   Ticker: %s\n", a.Ticker))
		}
		sb.WriteString(fmt.Sprintf("   %s | sentiment %s (%s) | relevance %s\n",
			a.PublishedAt, a.Sentiment, a.Confidence, a.Relevance))
		sb.WriteString(fmt.Sprintf("   Sources: %s\n", strings.Join(a.Sources, ", ")))
		if a.IsRumor {
			sb.WriteString("   [RUMOR]\n")
		}
		if len(a.Keywords) > 0 {
			sb.WriteString(fmt.Sprintf("   Keywords: %s\n", strings.Join(a.Keywords, ", ")))
		}
		if a.URL != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", a.URL))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(strings.Repeat("-", 50) + "\n")
	sb.WriteString(fmt.Sprintf("Articles in store: %d (today: %d, rumors: %d)\n",
		view.Stats.TotalArticles, view.Stats.ArticlesToday, view.Stats.Rumors))
	return sb.String()
}

func excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}
