package domain

import (
	"time"
)

// SentimentLabel is the fixed 3-way taxonomy every scorer backend is mapped to.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// Sentiment couples a label with the backend's calibrated confidence.
type Sentiment struct {
	Label      SentimentLabel
	Confidence float64
}

// Neutral is the fallback value when a scorer backend fails.
func Neutral() Sentiment {
	return Sentiment{Label: SentimentNeutral, Confidence: 0}
}

// Signed maps the label to {-1, 0, +1} scaled by confidence.
func (s Sentiment) Signed() float64 {
	switch s.Label {
	case SentimentPositive:
		return s.Confidence
	case SentimentNegative:
		return -s.Confidence
	default:
		return 0
	}
}

// Article is the canonical unit flowing through the pipeline.
type Article struct {
	// SourceID combines source name with the source-native id or URL hash.
	// Immutable once created.
	SourceID string

	Ticker      string
	CompanyName string
	// Language is "zh" when the original title contains Han characters, "en" otherwise.
	Language string

	TitleOriginal string
	BodyOriginal  string
	TitleEN       string
	BodyEN        string
	URL           string

	// Sources lists every origin that contributed this article after
	// cross-source merging.
	Sources []string

	PublishedAt time.Time
	FetchedAt   time.Time

	SentimentLabel      SentimentLabel
	SentimentConfidence float64
	RelevanceScore      float64

	MatchedKeywords []string
	IsRumor         bool
	RumorConfidence float64

	// DedupKey is a deterministic fingerprint of normalized title, ticker
	// and publish day.
	DedupKey string

	Reported   bool
	ReportedAt time.Time
}

// Sentiment returns the assigned label/confidence pair.
func (a Article) Sentiment() Sentiment {
	return Sentiment{Label: a.SentimentLabel, Confidence: a.SentimentConfidence}
}

// Title returns the English title when available, the original otherwise.
func (a Article) Title() string {
	if a.TitleEN != "" {
		return a.TitleEN
	}
	return a.TitleOriginal
}

// Body returns the English body when available, the original otherwise.
func (a Article) Body() string {
	if a.BodyEN != "" {
		return a.BodyEN
	}
	return a.BodyOriginal
}

// AgeAt reports article age relative to a run time, never negative.
func (a Article) AgeAt(now time.Time) time.Duration {
	age := now.Sub(a.PublishedAt)
	if age < 0 {
		return 0
	}
	return age
}

// WatchlistEntry is read-only configuration describing one tracked security.
type WatchlistEntry struct {
	Ticker        string
	CompanyName   string
	BoostKeywords []string
}

// DisplayName falls back to the bare stock code when no company name is configured.
func (w WatchlistEntry) DisplayName() string {
	if w.CompanyName != "" {
		return w.CompanyName
	}
	return w.Ticker
}
