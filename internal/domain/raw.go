package domain

import "time"

// RawRecord is the untyped shape every source adapter yields before
// normalization. Optional fields may be empty; the normalizer decides
// whether the record is usable.
type RawRecord struct {
	Source string
	// NativeID is the source's own identifier; when empty the URL is hashed
	// to derive the SourceID.
	NativeID    string
	Ticker      string
	CompanyName string
	Title       string
	Body        string
	URL         string
	PublishedAt time.Time
}

// StoreStats summarizes the state store for the report footer.
type StoreStats struct {
	TotalArticles      int
	ArticlesToday      int
	Rumors             int
	SentimentBreakdown map[SentimentLabel]int
	SourceBreakdown    map[string]int
}
