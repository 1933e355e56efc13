// Package normalize maps raw source records into the canonical article
// shape and derives the dedup fingerprint used for cross-source merging.
package normalize

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/width"

	"HKNewsDigest/internal/domain"
)

// ErrUnusable marks records that cannot become an article; callers count
// and drop them instead of failing the run.
var ErrUnusable = errors.New("unusable record")

// boilerplateCuts are markers commonly prepended or appended by feeds.
var boilerplateCuts = []string{
	"announcement:", "announcements:", "exclusive:", "update:", "breaking:",
	"press release:", "filing:", "公告:",
}

var rumorKeywords = []string{
	"rumor", "rumour", "speculation", "alleged", "unconfirmed",
	"reportedly", "sources say", "insider claims", "whispers",
	"市场传闻", "传言", "据悉", "有消息称", "知情人士", "据报道", "据称",
}

// Normalizer builds canonical articles; it never returns a fatal error.
type Normalizer struct{}

// New constructs a Normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize populates every canonical field except sentiment and relevance.
// A record without a usable title is rejected with ErrUnusable.
func (n *Normalizer) Normalize(raw domain.RawRecord, now time.Time) (domain.Article, error) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return domain.Article{}, fmt.Errorf("%w: empty title from %s", ErrUnusable, raw.Source)
	}
	if raw.Source == "" {
		return domain.Article{}, fmt.Errorf("%w: record without source", ErrUnusable)
	}

	publishedAt := raw.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = now
	}

	lang := "en"
	if containsHan(title) || containsHan(raw.Body) {
		lang = "zh"
	}

	isRumor, rumorConfidence := detectRumor(title + " " + raw.Body)

	article := domain.Article{
		SourceID:        sourceID(raw),
		Ticker:          raw.Ticker,
		CompanyName:     raw.CompanyName,
		Language:        lang,
		TitleOriginal:   title,
		BodyOriginal:    strings.TrimSpace(raw.Body),
		URL:             raw.URL,
		Sources:         []string{raw.Source},
		PublishedAt:     publishedAt,
		FetchedAt:       now,
		IsRumor:         isRumor,
		RumorConfidence: rumorConfidence,
		DedupKey:        DedupKey(title, raw.Ticker, publishedAt),
	}
	return article, nil
}

// DedupKey is a deterministic function of normalized title, ticker and the
// publish date truncated to day granularity.
func DedupKey(title, ticker string, publishedAt time.Time) string {
	return NormalizeTitle(title) + "|" + ticker + "|" + publishedAt.UTC().Format("2006-01-02")
}

// NormalizeTitle folds character width, lowercases, strips boilerplate
// markers and punctuation, and collapses whitespace. Titles differing only
// in casing, spacing or full/half-width punctuation normalize identically.
func NormalizeTitle(title string) string {
	s := width.Fold.String(title)
	s = strings.ToLower(strings.TrimSpace(s))

	for _, cut := range boilerplateCuts {
		if strings.HasPrefix(s, cut) {
			s = strings.TrimSpace(s[len(cut):])
		}
	}
	// Feeds often append the publisher after a dash.
	if idx := strings.LastIndex(s, " - "); idx > 0 {
		s = s[:idx]
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func sourceID(raw domain.RawRecord) string {
	if raw.NativeID != "" {
		return raw.Source + ":" + raw.NativeID
	}
	h := fnv.New64a()
	if raw.URL != "" {
		_, _ = h.Write([]byte(raw.URL))
	} else {
		_, _ = h.Write([]byte(raw.Title))
	}
	return fmt.Sprintf("%s:%x", raw.Source, h.Sum64())
}

func detectRumor(text string) (bool, float64) {
	lower := strings.ToLower(text)
	count := 0
	for _, kw := range rumorKeywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	if count == 0 {
		return false, 0
	}
	confidence := float64(count) * 0.2
	if confidence > 0.8 {
		confidence = 0.8
	}
	return true, confidence
}

func containsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
