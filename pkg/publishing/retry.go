package publishing

import (
	"context"
	"time"
)

// RetryPolicy bounds automatic retries of retryable failures (uploads, write
// submissions, per-article reads). Input and consistency failures are never
// retried regardless of policy.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt; it doubles after
	// every failure up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// do runs fn up to p.MaxAttempts times with doubling backoff. It returns the
// last error when every attempt fails, and stops early when ctx is done.
func (p RetryPolicy) do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.BaseDelay
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}

		if err = fn(); err == nil {
			return nil
		}

		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
