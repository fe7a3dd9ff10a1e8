package decode

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/model"
	"vaultScope/internal/topics"
)

// MetaFetcher reads the immutable enrichment fields of a contract. family is
// the event family of the log, which tells vaults from pools. block is the
// finalized block the fields are read at.
type MetaFetcher interface {
	ContractMeta(ctx context.Context, address common.Address, family topics.Family, block uint64) (model.ContractMeta, error)
}

// PoolStateReader reads the state of a contract's underlying pool at a block.
type PoolStateReader interface {
	PoolState(ctx context.Context, address common.Address, block uint64) (model.PoolSlot0, error)
}

// BlockTimer returns the timestamp of a block.
type BlockTimer interface {
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// ContractMetaCache memoizes contract metadata and enrichment failures for a run.
type ContractMetaCache struct {
	mu     sync.RWMutex
	data   map[common.Address]model.ContractMeta
	failed map[common.Address]error
}

func NewContractMetaCache() *ContractMetaCache {
	return &ContractMetaCache{
		data:   make(map[common.Address]model.ContractMeta),
		failed: make(map[common.Address]error),
	}
}

func (c *ContractMetaCache) Get(address common.Address) (model.ContractMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *ContractMetaCache) Set(address common.Address, meta model.ContractMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// Failure returns the recorded enrichment failure of a contract, or nil.
func (c *ContractMetaCache) Failure(address common.Address) error {
	c.mu.RLock()
	err := c.failed[address]
	c.mu.RUnlock()
	return err
}

// MarkFailed records an enrichment failure. It reports whether this is the
// first failure for the contract.
func (c *ContractMetaCache) MarkFailed(address common.Address, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.failed[address]; ok {
		return false
	}
	c.failed[address] = err
	return true
}
