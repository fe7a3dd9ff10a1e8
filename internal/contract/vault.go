package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/cache"
)

// Vault reads a gamma hypervisor or arrakis vault.
type Vault struct {
	binding *Binding
}

func NewVault(chainID uint64, address common.Address, caller Caller, c *cache.PropertyCache) (*Vault, error) {
	parsed, err := VaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}
	return &Vault{binding: NewBinding(chainID, address, parsed, caller, c)}, nil
}

func (v *Vault) Token0(ctx context.Context, block uint64) (string, error) {
	return cachedValue(ctx, v.binding, "token0", block, firstAddress)
}

func (v *Vault) Token1(ctx context.Context, block uint64) (string, error) {
	return cachedValue(ctx, v.binding, "token1", block, firstAddress)
}

func (v *Vault) Pool(ctx context.Context, block uint64) (string, error) {
	return cachedValue(ctx, v.binding, "pool", block, firstAddress)
}

func (v *Vault) Decimals(ctx context.Context, block uint64) (uint8, error) {
	return cachedValue(ctx, v.binding, "decimals", block, firstUint8)
}
