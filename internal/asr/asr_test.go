package asr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"dictation/internal/config"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func testAudio() Audio {
	return Audio{Data: []byte("RIFF....WAVEtest"), Name: "recording.wav", Duration: 2 * time.Second}
}

func newTestClient(t *testing.T, cfg config.Config, apiKey string) *Client {
	t.Helper()
	client, err := New(cfg, apiKey, &http.Client{Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	client.Retry.Sleep = noSleep
	return client
}

func TestTranscribeRetryExhaustedError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("fail"))
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.Backend = config.BackendHTTP
	cfg.APIEndpoint = server.URL
	cfg.TextPath = "text"
	cfg.MaxRetry = 2

	client := newTestClient(t, cfg, "")
	_, err := client.Transcribe(context.Background(), testAudio(), "auto")
	if err == nil {
		t.Fatalf("expected error")
	}

	var re *RetryExhaustedError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetryExhaustedError, got %T: %v", err, err)
	}
	if re.Attempts != cfg.MaxRetry {
		t.Fatalf("expected attempts %d, got %d", cfg.MaxRetry, re.Attempts)
	}
	if re.MaxRetry != cfg.MaxRetry {
		t.Fatalf("expected MaxRetry %d, got %d", cfg.MaxRetry, re.MaxRetry)
	}
	if got := atomic.LoadInt32(&calls); got != int32(cfg.MaxRetry) {
		t.Fatalf("expected %d requests, got %d", cfg.MaxRetry, got)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("expected wrapped 500 StatusError, got %v", err)
	}
}

func TestHTTPBackendRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		if _, ok := r.MultipartForm.Value["language"]; ok {
			t.Errorf("language must not be sent for auto")
		}
		if got := r.FormValue("punctuate"); got != "true" {
			t.Errorf("expected extra field punctuate=true, got %q", got)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("unexpected model %q", got)
		}
		files := r.MultipartForm.File["file"]
		if len(files) != 1 || files[0].Filename != "recording.wav" {
			t.Errorf("unexpected file part: %+v", files)
		}
		_, _ = w.Write([]byte(`{"results":[{"alternatives":[{"transcript":" hello there "}]}]}`))
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.Backend = config.BackendHTTP
	cfg.APIEndpoint = server.URL
	cfg.TextPath = "results[0].alternatives[0].transcript"
	cfg.ExtraConfig = `{"punctuate":true}`

	client := newTestClient(t, cfg, "secret")
	res, err := client.Transcribe(context.Background(), testAudio(), "auto")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello there" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if res.Duration != 2*time.Second {
		t.Fatalf("expected duration to fall back to the recording, got %v", res.Duration)
	}
}

func TestOpenAIRetriesTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("language"); got != "de" {
			t.Errorf("expected language de, got %q", got)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("expected verbose_json, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"task":"transcribe","language":"german","duration":1.5,"text":"Hallo Welt"}`))
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.APIBaseURL = server.URL + "/v1"

	client := newTestClient(t, cfg, "sk-test")
	res, err := client.Transcribe(context.Background(), testAudio(), "de")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "Hallo Welt" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if res.Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected duration %v", res.Duration)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 requests, got %d", got)
	}
}

func TestOpenAIUnauthorizedIsTerminal(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.APIBaseURL = server.URL + "/v1"

	client := newTestClient(t, cfg, "sk-bad")
	_, err := client.Transcribe(context.Background(), testAudio(), "")

	var te *TranscriptionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TranscriptionError, got %T: %v", err, err)
	}
	if te.Transient || te.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected terminal 401, got transient=%v status=%d", te.Transient, te.StatusCode)
	}
	var re *RetryExhaustedError
	if errors.As(err, &re) {
		t.Fatalf("terminal failure must not be reported as exhausted")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single request, got %d", got)
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	client := newTestClient(t, config.DefaultConfig(), "sk-test")
	if _, err := client.Transcribe(context.Background(), Audio{}, ""); err == nil {
		t.Fatalf("expected error for empty audio")
	}
}
