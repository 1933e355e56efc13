package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientParsesSegments(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("sl") != "zh" || q.Get("tl") != "en" || q.Get("client") != "gtx" {
			t.Errorf("unexpected query: %v", q)
		}
		_, _ = w.Write([]byte(`[[["Tencent ","腾讯",null],["announces buyback","宣布回购",null]],null,"zh"]`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	got, err := client.Translate(context.Background(), "腾讯宣布回购", "zh")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Tencent announces buyback" {
		t.Fatalf("got %q", got)
	}
}

func TestHTTPClientDefaultsToAutoDetect(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sl"); got != "auto" {
			t.Errorf("expected sl=auto, got %s", got)
		}
		_, _ = w.Write([]byte(`[[["hello","你好",null]]]`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	if _, err := client.Translate(context.Background(), "你好", ""); err != nil {
		t.Fatalf("Translate: %v", err)
	}
}

func TestHTTPClientRejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	if _, err := client.Translate(context.Background(), "文本", "zh"); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
