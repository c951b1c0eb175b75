package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func TestRetry_StopsOnSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxRetries: 3, Backoff: time.Millisecond}, isTransient, func(int) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetry_DoesNotRetryPermanentErrors(t *testing.T) {
	t.Parallel()

	permanent := errors.New("permanent")
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxRetries: 3, Backoff: time.Millisecond}, isTransient, func(int) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("got (%v, %d calls), want permanent after 1 call", err, calls)
	}
}

func TestRetry_GivesUpAfterBudget(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxRetries: 2, Backoff: time.Millisecond}, isTransient, func(int) error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) || calls != 3 {
		t.Fatalf("got (%v, %d calls), want transient after 3 calls", err, calls)
	}
}

func TestRetry_HonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, RetryConfig{MaxRetries: 5, Backoff: time.Hour}, isTransient, func(int) error {
		return errTransient
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func isTransient(err error) bool { return errors.Is(err, errTransient) }
