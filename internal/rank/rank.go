// Package rank computes the composite relevance score and orders the
// report selection.
package rank

import (
	"math"
	"sort"
	"strings"
	"time"

	"HKNewsDigest/internal/domain"
)

const baseScore = 1.0

// Options carries the active filter configuration.
type Options struct {
	KeywordsImportant []string
	KeywordsExclude   []string
	// TickerKeywords adds per-security boost keywords from the watchlist,
	// applied only to articles for that ticker.
	TickerKeywords map[string][]string
	// BoostPerKeyword is added once per distinct matched keyword, up to BoostCap.
	BoostPerKeyword float64
	BoostCap        float64
	// SentimentWeight scales the confidence-signed sentiment adjustment.
	SentimentWeight float64
	// HalfLife drives the exponential recency decay.
	HalfLife time.Duration
	// Lookback excludes articles older than the window before scoring.
	Lookback time.Duration
}

// Ranker scores articles once sentiment has been assigned.
type Ranker struct {
	opts Options
}

// New validates nothing; Options come from validated configuration.
func New(opts Options) *Ranker {
	return &Ranker{opts: opts}
}

// Excluded reports whether an exclude keyword appears in title or body.
// This is a hard filter: excluded articles are never reported.
func (r *Ranker) Excluded(article domain.Article) bool {
	text := strings.ToLower(article.Title() + " " + article.Body() + " " +
		article.TitleOriginal + " " + article.BodyOriginal)
	for _, kw := range r.opts.KeywordsExclude {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Score computes the composite relevance score at run time now. The second
// return is false when the article falls outside the lookback window.
func (r *Ranker) Score(article domain.Article, now time.Time) (float64, bool) {
	if r.opts.Lookback > 0 && article.AgeAt(now) > r.opts.Lookback {
		return 0, false
	}

	keywordAdj := r.opts.BoostPerKeyword * float64(len(r.MatchedKeywords(article)))
	if r.opts.BoostCap > 0 && keywordAdj > r.opts.BoostCap {
		keywordAdj = r.opts.BoostCap
	}

	sentimentAdj := article.Sentiment().Signed() * r.opts.SentimentWeight

	recency := 1.0
	if r.opts.HalfLife > 0 {
		ageDays := article.AgeAt(now).Hours() / 24
		halfLifeDays := r.opts.HalfLife.Hours() / 24
		recency = math.Exp(-ageDays / halfLifeDays)
	}

	return (baseScore + keywordAdj + sentimentAdj) * recency, true
}

// MatchedKeywords returns the distinct important keywords found in title or
// body, including the watchlist boost keywords for the article's ticker.
func (r *Ranker) MatchedKeywords(article domain.Article) []string {
	text := strings.ToLower(article.Title() + " " + article.Body() + " " +
		article.TitleOriginal + " " + article.BodyOriginal)

	var matched []string
	seen := make(map[string]struct{})
	match := func(keywords []string) {
		for _, kw := range keywords {
			if kw == "" {
				continue
			}
			if _, dup := seen[kw]; dup {
				continue
			}
			if strings.Contains(text, strings.ToLower(kw)) {
				seen[kw] = struct{}{}
				matched = append(matched, kw)
			}
		}
	}
	match(r.opts.KeywordsImportant)
	match(r.opts.TickerKeywords[article.Ticker])
	return matched
}

// Sort orders articles for report inclusion: relevance descending, ties
// broken by more recent publication, then by higher sentiment confidence.
func Sort(articles []domain.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.SentimentConfidence > b.SentimentConfidence
	})
}

// Top returns the best n articles after sorting.
func Top(articles []domain.Article, n int) []domain.Article {
	Sort(articles)
	if n > 0 && len(articles) > n {
		return articles[:n]
	}
	return articles
}
