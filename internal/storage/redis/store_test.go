package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/cache"
)

type memKV struct {
	data map[string]string
}

func (m *memKV) Get(_ context.Context, key string) *redis.StringCmd {
	value, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (m *memKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestCacheStoreRoundTripsThroughPropertyCache(t *testing.T) {
	ctx := context.Background()
	kv := &memKV{data: make(map[string]string)}
	store := NewCacheStore(kv, 56, "0xABC")

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc)

	c, err := cache.Open(ctx, store, cache.Options{})
	require.NoError(t, err)
	key := cache.NewKey(56, "0xabc", 10, "symbol")
	require.NoError(t, c.Put(ctx, key, "GAMMA", true))
	assert.Contains(t, kv.data, "property_cache:56:0xabc")

	reopened, err := cache.Open(ctx, NewCacheStore(kv, 56, "0xabc"), cache.Options{})
	require.NoError(t, err)
	got, err := cache.CachedCall(ctx, reopened, key, func(context.Context) (string, error) {
		return "", assert.AnError
	})
	require.NoError(t, err)
	assert.Equal(t, "GAMMA", got)

	require.NoError(t, store.Reset(ctx))
	assert.Empty(t, kv.data)
}
