package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// CachedCall returns the cached value at key or fetches and caches it.
// Latest-block keys and a nil cache always fetch.
func CachedCall[T any](ctx context.Context, c *PropertyCache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	if c == nil || key.Block == 0 {
		return fetch(ctx)
	}

	if value, ok := c.Get(key); ok {
		if typed, ok := value.(T); ok {
			return typed, nil
		}
		var out T
		if err := convert(value, &out); err == nil {
			return out, nil
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}
	if err := c.Put(ctx, key, value, false); err != nil {
		return value, err
	}
	return value, nil
}

func convert(value interface{}, out interface{}) error {
	raw, err := toRaw(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("convert cached value: %w", err)
	}
	return nil
}
