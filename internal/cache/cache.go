package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"vaultScope/internal/metrics"
)

// Options configures a PropertyCache. A nil Fixed uses DefaultFixed.
type Options struct {
	Reset bool
	Fixed []string
}

// PropertyCache memoizes contract property values by chain, address, block
// and property. One coarse lock guards reads, writes and flushes.
type PropertyCache struct {
	mu      sync.Mutex
	store   Store
	fixed   map[string]struct{}
	entries map[Key]interface{}

	// lowest holds the lowest cached block of every property.
	lowest map[propertyKey]uint64
}

// Open hydrates a cache from its store, or clears the store when opts.Reset
// is set.
func Open(ctx context.Context, store Store, opts Options) (*PropertyCache, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store is nil")
	}
	fixedNames := opts.Fixed
	if fixedNames == nil {
		fixedNames = DefaultFixed
	}
	fixed := make(map[string]struct{}, len(fixedNames))
	for _, name := range fixedNames {
		fixed[normalize(name)] = struct{}{}
	}

	c := &PropertyCache{
		store:   store,
		fixed:   fixed,
		entries: make(map[Key]interface{}),
		lowest:  make(map[propertyKey]uint64),
	}

	if opts.Reset {
		if err := store.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset cache: %w", err)
		}
		return c, nil
	}

	doc, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}
	if err := c.hydrate(doc); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *PropertyCache) hydrate(doc Document) error {
	for chainKey, addresses := range doc {
		chainID, err := strconv.ParseUint(chainKey, 10, 64)
		if err != nil {
			return fmt.Errorf("cache chain id %q: %w", chainKey, err)
		}
		for address, blocks := range addresses {
			for blockKey, properties := range blocks {
				block, err := strconv.ParseUint(blockKey, 10, 64)
				if err != nil {
					return fmt.Errorf("cache block %q: %w", blockKey, err)
				}
				for property, raw := range properties {
					c.set(NewKey(chainID, address, block, property), raw)
				}
			}
		}
	}
	return nil
}

// IsFixed reports whether property values are reused across blocks.
func (c *PropertyCache) IsFixed(property string) bool {
	_, ok := c.fixed[normalize(property)]
	return ok
}

// Get returns the value at the exact block. For fixed properties a miss
// falls back to the value cached at the lowest block. Values loaded from the
// store are returned as json.RawMessage.
func (c *PropertyCache) Get(key Key) (interface{}, bool) {
	key = NewKey(key.ChainID, key.Address, key.Block, key.Property)

	c.mu.Lock()
	defer c.mu.Unlock()

	if value, ok := c.entries[key]; ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return value, true
	}
	if c.IsFixed(key.Property) {
		if block, ok := c.lowest[key.property()]; ok {
			fallback := key
			fallback.Block = block
			if value, ok := c.entries[fallback]; ok {
				metrics.CacheLookups.WithLabelValues("fixed_hit").Inc()
				return value, true
			}
		}
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()
	return nil, false
}

// Put overwrites the value at key. With persist the whole cache is flushed
// before returning.
func (c *PropertyCache) Put(ctx context.Context, key Key, value interface{}, persist bool) error {
	key = NewKey(key.ChainID, key.Address, key.Block, key.Property)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.set(key, value)
	if !persist {
		return nil
	}
	return c.flushLocked(ctx)
}

func (c *PropertyCache) set(key Key, value interface{}) {
	c.entries[key] = value
	pk := key.property()
	if block, ok := c.lowest[pk]; !ok || key.Block < block {
		c.lowest[pk] = key.Block
	}
}

// Flush writes every entry to the store in one save.
func (c *PropertyCache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked(ctx)
}

func (c *PropertyCache) flushLocked(ctx context.Context) error {
	doc := make(Document)
	for key, value := range c.entries {
		raw, err := toRaw(value)
		if err != nil {
			return fmt.Errorf("marshal %s at block %d: %w", key.Property, key.Block, err)
		}

		chainKey := strconv.FormatUint(key.ChainID, 10)
		blockKey := strconv.FormatUint(key.Block, 10)
		addresses, ok := doc[chainKey]
		if !ok {
			addresses = make(map[string]map[string]map[string]json.RawMessage)
			doc[chainKey] = addresses
		}
		blocks, ok := addresses[key.Address]
		if !ok {
			blocks = make(map[string]map[string]json.RawMessage)
			addresses[key.Address] = blocks
		}
		properties, ok := blocks[blockKey]
		if !ok {
			properties = make(map[string]json.RawMessage)
			blocks[blockKey] = properties
		}
		properties[key.Property] = raw
	}

	if err := c.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	return nil
}

// Reset discards every entry and the persisted document.
func (c *PropertyCache) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[Key]interface{})
	c.lowest = make(map[propertyKey]uint64)
	if err := c.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset cache: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *PropertyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func toRaw(value interface{}) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
