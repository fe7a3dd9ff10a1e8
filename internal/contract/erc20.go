package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/cache"
)

// ERC20 reads token metadata.
type ERC20 struct {
	binding *Binding
}

func NewERC20(chainID uint64, address common.Address, caller Caller, c *cache.PropertyCache) (*ERC20, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &ERC20{binding: NewBinding(chainID, address, parsed, caller, c)}, nil
}

func (t *ERC20) Decimals(ctx context.Context, block uint64) (uint8, error) {
	return cachedValue(ctx, t.binding, "decimals", block, firstUint8)
}
