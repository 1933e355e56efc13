package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"HKNewsDigest/internal/ports"
)

// HTTPClient talks to the free web translation endpoint the original setup
// relied on. It returns errors; totality lives in the gateway.
type HTTPClient struct {
	endpoint string
	http     *http.Client
}

var _ ports.TranslationBackend = (*HTTPClient)(nil)

// NewHTTPClient creates a reusable HTTP client.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Translate requests an English rendition of text.
func (c *HTTPClient) Translate(ctx context.Context, text, sourceLang string) (string, error) {
	if sourceLang == "" {
		sourceLang = "auto"
	}

	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", sourceLang)
	query.Set("tl", "en")
	query.Set("dt", "t")
	query.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "HKNewsDigest/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate endpoint returned %s", resp.Status)
	}

	// Response shape: [[["translated","original",...],...],...]
	var payload []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty translation payload")
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", fmt.Errorf("decode segments: %w", err)
	}

	var b strings.Builder
	for _, segment := range segments {
		if len(segment) == 0 {
			continue
		}
		var chunk string
		if err := json.Unmarshal(segment[0], &chunk); err != nil {
			continue
		}
		b.WriteString(chunk)
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("no translated segments")
	}
	return b.String(), nil
}
