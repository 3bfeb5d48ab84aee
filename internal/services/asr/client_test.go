package asr

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"meetingintel/internal/services"
)

func newTestClient(url string) *Client {
	return NewClient(Config{URL: url, APIKey: "secret", Language: "en"}, WithRetryPolicy(services.RetryPolicy{MaxAttempts: 3}))
}

func TestTranscribeUploadsMultipartForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("read form file: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "standup.wav" || string(data) != "RIFF" {
			t.Errorf("unexpected upload %s %q", header.Filename, data)
		}
		if r.FormValue("language") != "en" {
			t.Errorf("expected language field, got %q", r.FormValue("language"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":       "hello team",
			"language":   "en",
			"confidence": 0.92,
			"words": []any{
				map[string]any{"text": "hello", "start": 0.0, "end": 0.4},
				map[string]any{"text": "team", "start": 0.5, "end": 0.9},
			},
		})
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Transcribe(context.Background(), "standup.wav", []byte("RIFF"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Text != "hello team" || len(got.Words) != 2 || got.Confidence == nil || *got.Confidence != 0.92 {
		t.Fatalf("unexpected transcription %+v", got)
	}
}

func TestTranscribeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"text": "ready"})
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Transcribe(context.Background(), "a.wav", []byte("x"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if calls.Load() != 3 || got.Text != "ready" || got.Words == nil {
		t.Fatalf("unexpected result %+v after %d calls", got, calls.Load())
	}
}

func TestTranscribeExhaustedRetriesStayRetryable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "busy", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Transcribe(context.Background(), "a.wav", []byte("x"))
	if !services.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestTranscribeClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unsupported media", http.StatusUnsupportedMediaType)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Transcribe(context.Background(), "a.wav", []byte("x"))
	var status *services.HTTPStatusError
	if !errors.As(err, &status) || status.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status error, got %v", err)
	}
	if services.IsRetryable(err) || calls.Load() != 1 {
		t.Fatalf("expected a single permanent failure, got retryable=%v calls=%d", services.IsRetryable(err), calls.Load())
	}
}

func TestTranscribeRejectsOutOfRangeConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"text": "x", "confidence": 3})
	}))
	defer server.Close()
	if _, err := newTestClient(server.URL).Transcribe(context.Background(), "a.wav", []byte("x")); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestUnconfiguredClient(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Transcribe(context.Background(), "a.wav", []byte("x")); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestHealthCheckProbesHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := newTestClient(server.URL + "/v1/transcribe").HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}
