// Package sentiment wraps a pluggable sentiment model behind a total
// gateway with a 3-way label taxonomy.
package sentiment

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"HKNewsDigest/internal/domain"
	"HKNewsDigest/internal/ports"
)

// Gateway is total: any backend failure yields (neutral, 0.0).
type Gateway struct {
	backend ports.SentimentBackend
	logger  *slog.Logger
}

var _ ports.SentimentScorer = (*Gateway)(nil)

// NewGateway wires the configured backend.
func NewGateway(backend ports.SentimentBackend, logger *slog.Logger) *Gateway {
	return &Gateway{backend: backend, logger: logger}
}

// Score assigns a label and calibrated confidence to the text.
func (g *Gateway) Score(ctx context.Context, text string) domain.Sentiment {
	if strings.TrimSpace(text) == "" || g.backend == nil {
		return domain.Neutral()
	}

	result, err := g.backend.Score(ctx, text)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("sentiment backend failed, defaulting to neutral", "error", err)
		}
		return domain.Neutral()
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	switch result.Label {
	case domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral:
	default:
		return domain.Neutral()
	}
	return result
}

// MapCompound reduces a signed compound score in [-1, 1] to the fixed
// taxonomy: compound > +threshold means positive, compound < -threshold
// means negative, anything else neutral. Confidence is the magnitude.
func MapCompound(compound, threshold float64) domain.Sentiment {
	switch {
	case compound > threshold:
		return domain.Sentiment{Label: domain.SentimentPositive, Confidence: math.Min(compound, 1)}
	case compound < -threshold:
		return domain.Sentiment{Label: domain.SentimentNegative, Confidence: math.Min(-compound, 1)}
	default:
		return domain.Sentiment{Label: domain.SentimentNeutral, Confidence: 0.5}
	}
}
