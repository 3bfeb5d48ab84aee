package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds the retries of one remote call.
type RetryPolicy struct {
	// MaxAttempts counts the first call. Zero means no attempt limit.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// MaxElapsed stops retrying once this much time has passed. Zero disables it.
	MaxElapsed time.Duration
}

// DefaultRetryPolicy is used by the remote clients unless overridden.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		MaxElapsed:   2 * time.Minute,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.InitialDelay),
		backoff.WithMaxInterval(max(p.MaxDelay, p.InitialDelay)),
		backoff.WithMaxElapsedTime(p.MaxElapsed),
	)
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// Retry runs op until it succeeds, returns an error IsRetryable rejects, or the
// policy or ctx gives up. The last error is returned unchanged so callers keep
// its marker. notify may be nil.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func() (T, error), notify func(err error, next time.Duration)) (T, error) {
	guarded := func() (T, error) {
		value, err := op()
		if err != nil && !IsRetryable(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}
	return backoff.RetryNotifyWithData(guarded, policy.backOff(ctx), notify)
}

// HTTPStatusError reports a non-2xx response from a remote service. Status 408,
// 429, and 5xx unwrap to ErrTransient; every other status unwraps to
// ErrExternalTool.
type HTTPStatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	body := strings.Join(strings.Fields(e.Body), " ")
	const limit = 200
	if len(body) > limit {
		body = body[:limit] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: http %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Service, e.StatusCode, body)
}

func (e *HTTPStatusError) Unwrap() error {
	if RetryableStatus(e.StatusCode) {
		return ErrTransient
	}
	return ErrExternalTool
}

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// TransportError classifies a failed HTTP round trip. Cancellation by ctx is
// returned as is; anything else is treated as transient.
func TransportError(ctx context.Context, service, operation string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %s: %w", service, operation, ctxErr)
	}
	return Wrap(ErrTransient, service, operation, "request failed", err)
}
