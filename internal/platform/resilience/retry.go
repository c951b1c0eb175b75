package resilience

import (
	"context"
	"time"
)

// Retry runs fn until it succeeds, returns an error for which retryable is
// false, or the retry budget is spent. The last error is returned.
func Retry(ctx context.Context, cfg RetryConfig, retryable func(error) bool, fn func(attempt int) error) error {
	var err error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if retryable == nil || !retryable(err) || attempt == cfg.MaxRetries {
			return err
		}

		timer := time.NewTimer(time.Duration(attempt+1) * cfg.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
