package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type instanceKey struct {
	chainID uint64
	address string
}

// Manager hands out one PropertyCache per (chain, address).
type Manager struct {
	factory StoreFactory
	opts    Options

	mu     sync.Mutex
	caches map[instanceKey]*PropertyCache
}

func NewManager(factory StoreFactory, opts Options) *Manager {
	return &Manager{
		factory: factory,
		opts:    opts,
		caches:  make(map[instanceKey]*PropertyCache),
	}
}

// For returns the cache of a contract, opening its store on first use.
func (m *Manager) For(ctx context.Context, chainID uint64, address string) (*PropertyCache, error) {
	key := instanceKey{chainID: chainID, address: normalize(address)}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.caches[key]; ok {
		return c, nil
	}
	if m.factory == nil {
		return nil, fmt.Errorf("cache store factory is nil")
	}
	store, err := m.factory(chainID, key.address)
	if err != nil {
		return nil, fmt.Errorf("open cache store %d/%s: %w", chainID, key.address, err)
	}
	c, err := Open(ctx, store, m.opts)
	if err != nil {
		return nil, fmt.Errorf("open cache %d/%s: %w", chainID, key.address, err)
	}
	m.caches[key] = c
	return c, nil
}

// Flush flushes every open cache and joins the failures.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	caches := make([]*PropertyCache, 0, len(m.caches))
	for _, c := range m.caches {
		caches = append(caches, c)
	}
	m.mu.Unlock()

	var errs []error
	for _, c := range caches {
		if err := c.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
