// Package translate wraps a pluggable translation capability with a
// deterministic fallback so the pipeline never fails on translation.
package translate

import (
	"context"
	"log/slog"
	"sync"
	"unicode"

	"HKNewsDigest/internal/ports"
)

// Gateway is total: it always returns some English rendition of the input.
// Identical input within a run is translated at most once.
type Gateway struct {
	backend  ports.TranslationBackend
	fallback ports.TranslationBackend
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string]string
}

var _ ports.Translator = (*Gateway)(nil)

// NewGateway wires the primary backend; fallback defaults to the glossary
// translator when nil.
func NewGateway(backend ports.TranslationBackend, fallback ports.TranslationBackend, logger *slog.Logger) *Gateway {
	if fallback == nil {
		fallback = NewGlossary()
	}
	return &Gateway{
		backend:  backend,
		fallback: fallback,
		logger:   logger,
		cache:    make(map[string]string),
	}
}

// Translate maps text to English. Text without Han characters passes
// through untouched; backend failure degrades to the fallback strategy.
func (g *Gateway) Translate(ctx context.Context, text, sourceLangHint string) string {
	if text == "" || !needsTranslation(text, sourceLangHint) {
		return text
	}

	g.mu.Lock()
	if cached, ok := g.cache[text]; ok {
		g.mu.Unlock()
		return cached
	}
	g.mu.Unlock()

	result := g.translateOnce(ctx, text, sourceLangHint)

	g.mu.Lock()
	g.cache[text] = result
	g.mu.Unlock()
	return result
}

func (g *Gateway) translateOnce(ctx context.Context, text, sourceLang string) string {
	if g.backend != nil {
		translated, err := g.backend.Translate(ctx, text, sourceLang)
		if err == nil && translated != "" {
			return translated
		}
		if err != nil && g.logger != nil {
			g.logger.Warn("translation backend failed, using fallback", "error", err)
		}
	}

	translated, err := g.fallback.Translate(ctx, text, sourceLang)
	if err != nil || translated == "" {
		return text
	}
	return translated
}

func needsTranslation(text, sourceLangHint string) bool {
	if sourceLangHint == "en" {
		return false
	}
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
