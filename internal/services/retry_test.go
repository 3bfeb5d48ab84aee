package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(5), func() (string, error) {
		calls++
		if calls < 3 {
			return "", &HTTPStatusError{Service: "asr", StatusCode: http.StatusServiceUnavailable}
		}
		return "done", nil
	}, nil)
	if err != nil || got != "done" {
		t.Fatalf("expected success, got %q %v", got, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	notified := 0
	_, err := Retry(context.Background(), fastPolicy(3), func() (int, error) {
		calls++
		return 0, &HTTPStatusError{Service: "llm", StatusCode: http.StatusTooManyRequests}
	}, func(error, time.Duration) { notified++ })
	if calls != 3 || notified != 2 {
		t.Fatalf("expected 3 calls and 2 notifications, got %d and %d", calls, notified)
	}
	if !errors.Is(err, ErrTransient) || !IsRetryable(err) {
		t.Fatalf("expected transient error to survive, got %v", err)
	}
}

func TestRetryDoesNotRepeatPermanentFailures(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(5), func() (int, error) {
		calls++
		return 0, &HTTPStatusError{Service: "asr", StatusCode: http.StatusUnauthorized, Body: "bad key"}
	}, nil)
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
	var status *HTTPStatusError
	if !errors.As(err, &status) || status.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status error, got %v", err)
	}
	if IsRetryable(err) || !errors.Is(err, ErrExternalTool) {
		t.Fatalf("expected permanent external tool failure, got %v", err)
	}
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, RetryPolicy{InitialDelay: time.Hour, MaxDelay: time.Hour}, func() (int, error) {
		calls++
		cancel()
		return 0, Wrap(ErrTransient, "asr", "upload", "reset", nil)
	}, nil)
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestHTTPStatusErrorMessage(t *testing.T) {
	err := &HTTPStatusError{Service: "asr", StatusCode: 502, Body: "bad\n  gateway"}
	if got := err.Error(); got != "asr: http 502: bad gateway" {
		t.Fatalf("unexpected message %q", got)
	}
	if !RetryableStatus(http.StatusRequestTimeout) || RetryableStatus(http.StatusNotFound) {
		t.Fatal("unexpected retryable status classification")
	}
}
