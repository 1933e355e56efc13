package translate

import (
	"context"
	"strings"

	"HKNewsDigest/internal/ports"
)

type glossaryEntry struct {
	zh, en string
}

// glossary maps common financial terms so a degraded run still yields
// screenable English. Longer phrases come first so they win over their
// substrings; the ordering keeps output deterministic.
var glossary = []glossaryEntry{
	{"盈利警告", "profit warning"},
	{"盈利", "profit"},
	{"收益", "earnings"},
	{"亏损", "loss"},
	{"营收", "revenue"},
	{"股息", "dividend"},
	{"收购", "acquisition"},
	{"合并", "merger"},
	{"回购", "buyback"},
	{"监管", "regulation"},
	{"调查", "investigation"},
	{"诉讼", "lawsuit"},
	{"上市", "listing"},
	{"增长", "growth"},
	{"下跌", "decline"},
	{"上涨", "rise"},
	{"暴跌", "plunge"},
	{"业绩", "results"},
	{"财报", "financial report"},
	{"腾讯", "Tencent"},
	{"控股", "holdings"},
}

// Glossary is the lower-quality deterministic fallback strategy: keyword
// substitution over the original text, identity otherwise.
type Glossary struct{}

var _ ports.TranslationBackend = (*Glossary)(nil)

// NewGlossary constructs the fallback translator.
func NewGlossary() *Glossary {
	return &Glossary{}
}

// Translate substitutes known terms; it cannot fail.
func (g *Glossary) Translate(_ context.Context, text, _ string) (string, error) {
	result := text
	for _, entry := range glossary {
		result = strings.ReplaceAll(result, entry.zh, " "+entry.en+" ")
	}
	return strings.Join(strings.Fields(result), " "), nil
}
