package scrape

import (
	"context"
	"time"

	"vaultScope/internal/chain"
)

// RetryPolicy retries transient failures a fixed number of times with a
// fixed delay. Other errors return immediately.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetry is used when a runner is built without a policy.
var DefaultRetry = RetryPolicy{Attempts: 3, Delay: 2 * time.Second}

// Do runs fn until it succeeds, fails permanently or attempts run out.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay < 0 {
		delay = 0
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= attempts || !chain.IsTransient(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
