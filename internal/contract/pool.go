package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/cache"
	"vaultScope/internal/model"
)

// Flavor selects the pool's tick math and state accessor.
type Flavor int

const (
	// FlavorClassic pools expose slot0 (uniswap v3 and forks).
	FlavorClassic Flavor = iota
	// FlavorAlgebra pools expose globalState (quickswap, thena, zyberswap).
	FlavorAlgebra
)

func (f Flavor) String() string {
	switch f {
	case FlavorAlgebra:
		return "algebra"
	default:
		return "classic"
	}
}

// ParseFlavor accepts a flavor or a dex name.
func ParseFlavor(name string) (Flavor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "classic", "uniswapv3", "pancakeswap", "sushiswap":
		return FlavorClassic, nil
	case "algebra", "quickswap", "thena", "zyberswap", "camelot":
		return FlavorAlgebra, nil
	default:
		return FlavorClassic, fmt.Errorf("unknown pool flavor: %s", name)
	}
}

// Pool reads concentrated-liquidity pool state.
type Pool struct {
	binding *Binding
	flavor  Flavor
}

func NewPool(chainID uint64, address common.Address, flavor Flavor, caller Caller, c *cache.PropertyCache) (*Pool, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	return &Pool{binding: NewBinding(chainID, address, parsed, caller, c), flavor: flavor}, nil
}

func (p *Pool) Token0(ctx context.Context, block uint64) (string, error) {
	return cachedValue(ctx, p.binding, "token0", block, firstAddress)
}

func (p *Pool) Token1(ctx context.Context, block uint64) (string, error) {
	return cachedValue(ctx, p.binding, "token1", block, firstAddress)
}

func (p *Pool) stateMethod() string {
	if p.flavor == FlavorAlgebra {
		return "globalState"
	}
	return "slot0"
}

// State returns the price and tick at block.
func (p *Pool) State(ctx context.Context, block uint64) (model.PoolSlot0, error) {
	return cachedValue(ctx, p.binding, p.stateMethod(), block, func(values []interface{}) (model.PoolSlot0, error) {
		if len(values) < 2 {
			return model.PoolSlot0{}, fmt.Errorf("%s returned %d values", p.stateMethod(), len(values))
		}
		sqrt, ok := values[0].(*big.Int)
		if !ok {
			return model.PoolSlot0{}, fmt.Errorf("unsupported price type %T", values[0])
		}
		tick, ok := values[1].(*big.Int)
		if !ok {
			return model.PoolSlot0{}, fmt.Errorf("unsupported tick type %T", values[1])
		}
		if !tick.IsInt64() || tick.Int64() < -1<<23 || tick.Int64() > 1<<23-1 {
			return model.PoolSlot0{}, fmt.Errorf("int24 overflow: %s", tick.String())
		}
		return model.PoolSlot0{SqrtPriceX96: sqrt.String(), Tick: int32(tick.Int64())}, nil
	})
}

func (p *Pool) Liquidity(ctx context.Context, block uint64) (string, error) {
	return cachedValue(ctx, p.binding, "liquidity", block, firstBigString)
}
