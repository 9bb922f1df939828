package enhance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"dictation/internal/config"
)

func chatReply(content string) string {
	b, _ := json.Marshal(content)
	return fmt.Sprintf(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`, b)
}

func newTestEnhancer(t *testing.T, url string, enabled bool) *Enhancer {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.APIBaseURL = url + "/v1"
	cfg.EnhanceText = enabled
	e := New(cfg, "sk-test", &http.Client{Timeout: time.Second}, nil)
	e.Retry.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return e
}

func TestEnhanceSkipsWithoutCall(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	disabled := newTestEnhancer(t, server.URL, false)
	if got, err := disabled.Enhance(context.Background(), "um hello there"); err != nil || got != "um hello there" {
		t.Fatalf("disabled enhancer changed text: %q, %v", got, err)
	}
	enabled := newTestEnhancer(t, server.URL, true)
	if got, err := enabled.Enhance(context.Background(), "hello"); err != nil || got != "hello" {
		t.Fatalf("single word changed: %q, %v", got, err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestEnhanceCleansText(t *testing.T) {
	input := "um so hello there world"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model       string  `json:"model"`
			MaxTokens   int     `json:"max_tokens"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" || req.MaxTokens != 2*len(input) {
			t.Errorf("unexpected model/max_tokens: %s/%d", req.Model, req.MaxTokens)
		}
		if req.Temperature < 0.29 || req.Temperature > 0.31 {
			t.Errorf("unexpected temperature %v", req.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != input {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply(" Hello there, world. ")))
	}))
	defer server.Close()

	got, err := newTestEnhancer(t, server.URL, true).Enhance(context.Background(), input)
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if got != "Hello there, world." {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestEnhanceFailureReturnsOriginal(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"bad gateway","type":"server_error"}}`))
	}))
	defer server.Close()

	input := "this is the original text"
	got, err := newTestEnhancer(t, server.URL, true).Enhance(context.Background(), input)
	if got != input {
		t.Fatalf("expected original text, got %q", got)
	}
	var ee *EnhancementError
	if !errors.As(err, &ee) || ee.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected EnhancementError with 502, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestEnhanceUnauthorizedNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	input := "two words"
	got, err := newTestEnhancer(t, server.URL, true).Enhance(context.Background(), input)
	if got != input || err == nil {
		t.Fatalf("expected original text and an error, got %q, %v", got, err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestEnhanceRejectsImplausibleAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply(strings.Repeat("word ", 40))))
	}))
	defer server.Close()

	input := "please send the report"
	got, err := newTestEnhancer(t, server.URL, true).Enhance(context.Background(), input)
	if got != input {
		t.Fatalf("expected original text, got %q", got)
	}
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestPlausible(t *testing.T) {
	cases := []struct {
		orig, enh string
		want      bool
	}{
		{"one two three four five six seven eight nine ten", "one two three", true},
		{"one two three four five six seven eight nine ten", "one two", false},
		{"one two", "a b c d e f", true},
		{"one two", "a b c d e f g", false},
	}
	for _, c := range cases {
		if got := plausible(c.orig, c.enh); got != c.want {
			t.Fatalf("plausible(%q, %q) = %v, want %v", c.orig, c.enh, got, c.want)
		}
	}
}
