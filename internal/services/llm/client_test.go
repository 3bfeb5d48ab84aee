package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"meetingintel/internal/services"
)

func completionServer(t *testing.T, choice func(call int32) map[string]any) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		c := choice(n)
		if c == nil {
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		if err := json.NewEncoder(w).Encode(map[string]any{"choices": []any{c}}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func message(content string) map[string]any {
	return map[string]any{"message": map[string]any{"content": content}}
}

func newTestClient(url string) *Client {
	return NewClient(
		Config{APIKey: "test", BaseURL: url, Model: "demo-model"},
		WithRetryPolicy(services.RetryPolicy{MaxAttempts: 4}),
	)
}

func TestClientHealthCheck(t *testing.T) {
	server, _ := completionServer(t, func(int32) map[string]any { return message(`{"ok":true}`) })
	if err := newTestClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server, _ := completionServer(t, func(int32) map[string]any { return message("```json\n{\"ok\":true}\n```") })
	if err := newTestClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckUnauthorizedIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	err := newTestClient(server.URL).HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected health check to fail")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected no retries on 401, got %d calls", calls.Load())
	}
	if services.IsRetryable(err) {
		t.Fatalf("expected permanent failure, got %v", err)
	}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	if client.Configured() {
		t.Fatal("expected client without key to be unconfigured")
	}
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSummarizeParsesToolCallArguments(t *testing.T) {
	server, _ := completionServer(t, func(int32) map[string]any {
		return map[string]any{
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"content": "",
				"tool_calls": []any{map[string]any{
					"function": map[string]any{
						"arguments": `{"summary":"Budget approved.","action_items":["Ana sends the plan"," "],"decisions":["Approve budget"],"confidence":1.4}`,
					},
				}},
			},
		}
	})
	summary, err := newTestClient(server.URL).Summarize(context.Background(), "we approve the budget", "positive")
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if summary.Summary != "Budget approved." {
		t.Fatalf("unexpected summary %q", summary.Summary)
	}
	if len(summary.ActionItems) != 1 || summary.ActionItems[0] != "Ana sends the plan" {
		t.Fatalf("expected blank action items dropped, got %v", summary.ActionItems)
	}
	if summary.Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1, got %v", summary.Confidence)
	}
}

func TestSummarizeDeltaAndLegacyText(t *testing.T) {
	body := `{"summary":"ok","action_items":[],"decisions":[],"confidence":0.7}`
	for name, choice := range map[string]map[string]any{
		"delta":  {"delta": map[string]any{"content": body}},
		"legacy": {"finish_reason": "stop", "text": body},
	} {
		t.Run(name, func(t *testing.T) {
			server, _ := completionServer(t, func(int32) map[string]any { return choice })
			summary, err := newTestClient(server.URL).Summarize(context.Background(), "hello", "")
			if err != nil {
				t.Fatalf("Summarize returned error: %v", err)
			}
			if summary.Confidence != 0.7 || summary.Decisions == nil {
				t.Fatalf("unexpected summary %+v", summary)
			}
		})
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	server, calls := completionServer(t, func(n int32) map[string]any {
		if n == 1 {
			return nil
		}
		return message(`{"ok":true}`)
	})
	if err := newTestClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestClientRetriesOnEmptyContent(t *testing.T) {
	server, calls := completionServer(t, func(n int32) map[string]any {
		if n < 3 {
			return map[string]any{"finish_reason": "stop", "message": map[string]any{"content": ""}}
		}
		return message(`{"ok":true}`)
	})
	if err := newTestClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClientEmptyContentExhaustsRetries(t *testing.T) {
	server, calls := completionServer(t, func(int32) map[string]any {
		return map[string]any{"finish_reason": "stop", "message": map[string]any{"content": ""}}
	})
	_, err := newTestClient(server.URL).CompleteJSON(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected completion to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error with snippet, got %v", err)
	}
	if !services.IsRetryable(err) {
		t.Fatalf("expected empty content to stay retryable, got %v", err)
	}
	if calls.Load() != 4 {
		t.Fatalf("expected 4 attempts, got %d", calls.Load())
	}
}

func TestDecodeLLMJSONExtractsEmbeddedObject(t *testing.T) {
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON("Sure! Here you go: {\"ok\": true} Thanks.", &parsed); err != nil || !parsed.OK {
		t.Fatalf("expected embedded object to decode, got %+v %v", parsed, err)
	}
	if err := DecodeLLMJSON("   ", &parsed); err == nil {
		t.Fatal("expected empty payload error")
	}
}
