package sentiment

import (
	"context"
	"strings"
	"unicode"

	"HKNewsDigest/internal/domain"
	"HKNewsDigest/internal/ports"
)

var positiveEN = []string{
	"profit", "gain", "growth", "surge", "beat", "exceed",
	"strong", "robust", "upgrade", "bullish", "outperform",
	"success", "record", "breakthrough", "buyback",
}

var negativeEN = []string{
	"loss", "decline", "fall", "drop", "miss", "weak",
	"downgrade", "bearish", "underperform", "concern",
	"warning", "risk", "investigation", "lawsuit", "fraud",
}

var positiveZH = []string{
	"增长", "上涨", "盈利", "收益", "成功", "强劲",
	"超预期", "利好", "看涨", "突破", "创新高",
}

var negativeZH = []string{
	"下跌", "亏损", "损失", "暴跌", "风险", "警告",
	"调查", "诉讼", "违规", "看跌", "利空",
}

// Lexicon scores by keyword counting, the same degraded strategy the
// model-backed analyzers fall back to. It cannot fail.
type Lexicon struct{}

var _ ports.SentimentBackend = (*Lexicon)(nil)

// NewLexicon constructs the keyword scorer.
func NewLexicon() *Lexicon {
	return &Lexicon{}
}

// Score counts positive and negative markers, English and Chinese.
func (l *Lexicon) Score(_ context.Context, text string) (domain.Sentiment, error) {
	lower := strings.ToLower(text)

	pos := countMatches(lower, positiveEN)
	neg := countMatches(lower, negativeEN)
	if containsHan(text) {
		pos += countMatches(text, positiveZH)
		neg += countMatches(text, negativeZH)
	}

	switch {
	case pos > neg:
		return domain.Sentiment{Label: domain.SentimentPositive, Confidence: capConfidence(pos - neg)}, nil
	case neg > pos:
		return domain.Sentiment{Label: domain.SentimentNegative, Confidence: capConfidence(neg - pos)}, nil
	default:
		return domain.Sentiment{Label: domain.SentimentNeutral, Confidence: 0.5}, nil
	}
}

func countMatches(text string, words []string) int {
	count := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			count++
		}
	}
	return count
}

func capConfidence(margin int) float64 {
	confidence := float64(margin) * 0.25
	if confidence > 0.8 {
		confidence = 0.8
	}
	return confidence
}

func containsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
