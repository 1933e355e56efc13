// Package dedup merges articles referring to the same underlying event
// across sources and across daily runs.
package dedup

import (
	"HKNewsDigest/internal/domain"
)

// Outcome classifies one Add call.
type Outcome int

const (
	// OutcomeNew means the article became the canonical record for its key.
	OutcomeNew Outcome = iota
	// OutcomeMerged means the article was folded into an in-run canonical.
	OutcomeMerged
	// OutcomeSeen means the key was already reported by a previous run
	// within the lookback window.
	OutcomeSeen
)

// Deduplicator holds the candidate set for one run. It must see the full
// set before Canonical is read, so fetch fan-out joins first.
type Deduplicator struct {
	previouslySeen map[string]struct{}
	canonical      map[string]*domain.Article
	order          []string
}

// New primes the deduplicator with dedup keys already reported within the
// lookback window.
func New(previouslySeen []string) *Deduplicator {
	seen := make(map[string]struct{}, len(previouslySeen))
	for _, key := range previouslySeen {
		seen[key] = struct{}{}
	}
	return &Deduplicator{
		previouslySeen: seen,
		canonical:      make(map[string]*domain.Article),
	}
}

// Add decides whether the article is new, a duplicate of an in-run
// canonical, or already seen in a previous run.
func (d *Deduplicator) Add(article domain.Article) Outcome {
	if _, ok := d.previouslySeen[article.DedupKey]; ok {
		return OutcomeSeen
	}

	existing, ok := d.canonical[article.DedupKey]
	if !ok {
		stored := article
		d.canonical[article.DedupKey] = &stored
		d.order = append(d.order, article.DedupKey)
		return OutcomeNew
	}

	merge(existing, article)
	return OutcomeMerged
}

// Canonical returns one article per dedup key in first-seen order.
func (d *Deduplicator) Canonical() []domain.Article {
	out := make([]domain.Article, 0, len(d.order))
	for _, key := range d.order {
		out = append(out, *d.canonical[key])
	}
	return out
}

// merge keeps the earliest published version as canonical and unions source
// attribution. The later record contributes nothing else.
func merge(canonical *domain.Article, duplicate domain.Article) {
	if duplicate.PublishedAt.Before(canonical.PublishedAt) {
		sources := canonical.Sources
		*canonical = duplicate
		canonical.Sources = sources
	}
	for _, src := range duplicate.Sources {
		if !containsSource(canonical.Sources, src) {
			canonical.Sources = append(canonical.Sources, src)
		}
	}
}

func containsSource(sources []string, src string) bool {
	for _, s := range sources {
		if s == src {
			return true
		}
	}
	return false
}
