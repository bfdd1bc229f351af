package ingest

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/lib/pq"
)

// retryConfig holds the backoff policy for transient storage errors (max retries,
// base/max delay, full-jitter exponential backoff) but is applied to
// database transaction retries instead of HTTP calls.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

var defaultRetryConfig = retryConfig{
	maxRetries: 5,
	baseDelay:  100 * time.Millisecond,
	maxDelay:   5 * time.Second,
}

// retryableSQLStates are the Postgres SQLSTATEs the Batch Writer treats as
// transient: serialization failure, deadlock detected, connection
// failures. Anything else is surfaced immediately.
var retryableSQLStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"08006": true, // connection_failure
	"08003": true, // connection_does_not_exist
	"08000": true, // connection_exception
}

// isRetryable reports whether err is a transient storage error:
// deadlocks, pool exhaustion, timeouts, dropped connections.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return retryableSQLStates[string(pqErr.Code)]
	}
	// Pool-exhaustion and dropped-connection errors from database/sql
	// surface as plain strings rather than typed errors; match the
	// substrings Postgres drivers surface for transient failures.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "driver: bad connection") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "too many connections")
}

// withRetry runs fn, retrying on transient storage errors with exponential
// backoff and full jitter, bounded by cfg.maxRetries. It respects ctx
// cancellation between attempts.
func withRetry(ctx context.Context, cfg retryConfig, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(cfg, attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// backoffDelay computes exponential backoff with full jitter: a random
// duration in [0, min(maxDelay, baseDelay*2^(attempt-1))], both ends
// included.
func backoffDelay(cfg retryConfig, attempt int) time.Duration {
	exp := cfg.baseDelay << uint(attempt-1)
	if exp > cfg.maxDelay || exp <= 0 {
		exp = cfg.maxDelay
	}
	return time.Duration(rand.Int63n(int64(exp) + 1))
}
