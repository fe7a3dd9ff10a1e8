package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"vaultScope/internal/metrics"
)

// Limiter allows at most N hits per one-second window. Callers block on Wait
// before issuing a request.
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter builds a limiter for perSecond hits. A non-positive value
// disables limiting.
func NewLimiter(perSecond int, name string) *Limiter {
	if perSecond <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 0), name: name}
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
		name:    name,
	}
}

// Wait blocks until one hit is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	r := l.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	metrics.RPCRateLimitWaits.WithLabelValues(l.name).Inc()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}
