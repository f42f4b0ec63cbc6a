package resilience

import (
	"context"
	"time"
)

// Retry runs fn until it succeeds, returns a non-retryable error, or the policy
// is exhausted. It reports how many attempts were made.
func Retry(ctx context.Context, policy RetryPolicy, retryable func(error) bool, fn func(ctx context.Context, attempt int) error) (int, error) {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}

	var err error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return attempt, err
		}

		err = fn(ctx, attempt)
		if err == nil {
			return attempt + 1, nil
		}
		if retryable != nil && !retryable(err) {
			return attempt + 1, err
		}
		if attempt == policy.MaxRetries {
			return attempt + 1, err
		}

		wait := policy.Delay(attempt)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt + 1, ctx.Err()
		case <-timer.C:
		}
	}
	return policy.MaxRetries + 1, err
}
