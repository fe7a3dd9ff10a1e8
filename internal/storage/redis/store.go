package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"vaultScope/internal/cache"
)

// commander is the subset of go-redis commands the cache store uses.
type commander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Client wraps a Redis connection.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to the Redis URL and pings it.
func NewClient(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// CacheStoreFactory opens one key per (chain, address).
func (c *Client) CacheStoreFactory() cache.StoreFactory {
	return func(chainID uint64, address string) (cache.Store, error) {
		return NewCacheStore(c.rdb, chainID, address), nil
	}
}

func cacheKey(chainID uint64, address string) string {
	return fmt.Sprintf("property_cache:%d:%s", chainID, strings.ToLower(address))
}

// CacheStore keeps a property cache document under one key.
type CacheStore struct {
	rdb commander
	key string
}

func NewCacheStore(rdb commander, chainID uint64, address string) *CacheStore {
	return &CacheStore{rdb: rdb, key: cacheKey(chainID, address)}
}

func (s *CacheStore) Load(ctx context.Context) (cache.Document, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cache.Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache document: %w", err)
	}

	var doc cache.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache document: %w", err)
	}
	return doc, nil
}

func (s *CacheStore) Save(ctx context.Context, doc cache.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal cache document: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set cache document: %w", err)
	}
	return nil
}

func (s *CacheStore) Reset(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache document: %w", err)
	}
	return nil
}
