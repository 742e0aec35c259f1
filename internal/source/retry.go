package source

import (
	"context"
	"time"
)

const (
	// MaxAttempts bounds retries for a single adapter call. Retries are
	// local to one call and never restart a whole fan-out.
	MaxAttempts = 3
	// BackoffBase is the first retry delay; subsequent delays double.
	BackoffBase = 250 * time.Millisecond
)

// WithRetry runs fn up to MaxAttempts times with exponential backoff.
// Only retryable errors (transport failures, 5xx, 429) trigger another
// attempt; validation and other 4xx errors return immediately.
func WithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt < MaxAttempts-1 {
			backoff := BackoffBase << uint(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
