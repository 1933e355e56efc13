package translate

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type scriptedBackend struct {
	result string
	err    error
	calls  int
}

func (s *scriptedBackend) Translate(context.Context, string, string) (string, error) {
	s.calls++
	return s.result, s.err
}

func TestTranslatePassesEnglishThrough(t *testing.T) {
	t.Parallel()

	backend := &scriptedBackend{result: "should not be used"}
	g := NewGateway(backend, nil, nil)

	got := g.Translate(context.Background(), "Tencent posts record profit", "en")
	if got != "Tencent posts record profit" {
		t.Fatalf("english text must pass through untouched, got %q", got)
	}
	if backend.calls != 0 {
		t.Fatalf("backend must not be called for english text, calls = %d", backend.calls)
	}
}

func TestTranslateUsesBackend(t *testing.T) {
	t.Parallel()

	backend := &scriptedBackend{result: "Tencent profit grows"}
	g := NewGateway(backend, nil, nil)

	got := g.Translate(context.Background(), "腾讯盈利增长", "zh")
	if got != "Tencent profit grows" {
		t.Fatalf("got %q", got)
	}
}

func TestTranslateFallsBackOnBackendError(t *testing.T) {
	t.Parallel()

	backend := &scriptedBackend{err: errors.New("upstream down")}
	g := NewGateway(backend, nil, nil)

	got := g.Translate(context.Background(), "腾讯宣布回购", "zh")
	if !strings.Contains(got, "Tencent") || !strings.Contains(got, "buyback") {
		t.Fatalf("glossary fallback should anglicize known terms, got %q", got)
	}
}

func TestTranslateCachesWithinGateway(t *testing.T) {
	t.Parallel()

	backend := &scriptedBackend{result: "Tencent earnings"}
	g := NewGateway(backend, nil, nil)

	for i := 0; i < 3; i++ {
		g.Translate(context.Background(), "腾讯收益", "zh")
	}
	if backend.calls != 1 {
		t.Fatalf("identical input must hit the backend once, calls = %d", backend.calls)
	}
}

func TestGlossaryDeterministicAndLongestFirst(t *testing.T) {
	t.Parallel()

	glossary := NewGlossary()
	first, _ := glossary.Translate(context.Background(), "腾讯发布盈利警告", "zh")
	for i := 0; i < 5; i++ {
		again, _ := glossary.Translate(context.Background(), "腾讯发布盈利警告", "zh")
		if again != first {
			t.Fatalf("glossary output must be deterministic: %q vs %q", first, again)
		}
	}
	if !strings.Contains(first, "profit warning") {
		t.Fatalf("longer phrase must win over its substring, got %q", first)
	}
}
