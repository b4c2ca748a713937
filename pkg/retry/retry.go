package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds a retried operation: at most Attempts tries, with the delay
// doubling after each failure starting from InitialDelay.
type Policy struct {
	Attempts     int
	InitialDelay time.Duration
}

// Do runs fn until it succeeds, the policy is exhausted, or ctx is done.
// The last error is returned with the attempt count attached.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
