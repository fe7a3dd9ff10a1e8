package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryTransientThenSucceed(t *testing.T) {
	calls := 0
	err := RetryPolicy{Attempts: 3, Delay: time.Millisecond}.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("503 Service Unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := RetryPolicy{Attempts: 2, Delay: time.Millisecond}.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("connection reset by peer")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetrySkipsPermanentErrors(t *testing.T) {
	calls := 0
	err := RetryPolicy{Attempts: 5, Delay: time.Millisecond}.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("invalid argument 0: hex string without 0x prefix")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryPolicy{Attempts: 5, Delay: time.Hour}.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("i/o timeout")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
