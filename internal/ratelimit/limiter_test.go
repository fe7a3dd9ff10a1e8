package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllowsBurstImmediately(t *testing.T) {
	l := NewLimiter(5, "test")
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterDelaysPastBudget(t *testing.T) {
	l := NewLimiter(10, "test")
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, l.Wait(ctx))
	}

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterHonorsContext(t *testing.T) {
	l := NewLimiter(1, "test")
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0, "test")
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	var nilLimiter *Limiter
	assert.NoError(t, nilLimiter.Wait(context.Background()))
}
