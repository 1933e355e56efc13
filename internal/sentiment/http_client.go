package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"HKNewsDigest/internal/domain"
	"HKNewsDigest/internal/ports"
)

// maxInputLength bounds text sent to the model service; BERT-family models
// truncate past 512 tokens anyway.
const maxInputLength = 500

// HTTPClient talks to an external inference service hosting a financial
// sentiment model.
type HTTPClient struct {
	endpoint  string
	threshold float64
	http      *http.Client
}

var _ ports.SentimentBackend = (*HTTPClient)(nil)

// NewHTTPClient creates a reusable HTTP client; threshold drives the
// compound-score mapping when the service returns no label.
func NewHTTPClient(endpoint string, threshold float64, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		endpoint:  endpoint,
		threshold: threshold,
		http:      &http.Client{Timeout: timeout},
	}
}

// Score posts the text for classification.
func (c *HTTPClient) Score(ctx context.Context, text string) (domain.Sentiment, error) {
	if len(text) > maxInputLength {
		text = text[:maxInputLength]
	}

	body, err := json.Marshal(map[string]any{"text": text})
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Sentiment{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var payload struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
		Compound   float64 `json:"compound"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Sentiment{}, fmt.Errorf("decode response: %w", err)
	}

	if payload.Label != "" {
		label := domain.SentimentLabel(strings.ToLower(payload.Label))
		switch label {
		case domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral:
			return domain.Sentiment{Label: label, Confidence: payload.Confidence}, nil
		}
		return domain.Sentiment{}, fmt.Errorf("unknown label %q", payload.Label)
	}

	return MapCompound(payload.Compound, c.threshold), nil
}
