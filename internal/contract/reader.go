package contract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultScope/internal/cache"
	"vaultScope/internal/model"
	"vaultScope/internal/topics"
)

// MetaReader enriches vault operations from chain state, memoizing every
// read in the per-contract property caches.
type MetaReader struct {
	chainID uint64
	caller  Caller
	caches  *cache.Manager
	flavor  Flavor
	logger  *zap.Logger
}

// NewMetaReader builds a reader. caches may be nil to disable memoization.
func NewMetaReader(chainID uint64, caller Caller, caches *cache.Manager, flavor Flavor, logger *zap.Logger) *MetaReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaReader{
		chainID: chainID,
		caller:  caller,
		caches:  caches,
		flavor:  flavor,
		logger:  logger,
	}
}

func (r *MetaReader) cacheFor(ctx context.Context, address common.Address) (*cache.PropertyCache, error) {
	if r.caches == nil {
		return nil, nil
	}
	return r.caches.For(ctx, r.chainID, address.Hex())
}

func (r *MetaReader) vault(ctx context.Context, address common.Address) (*Vault, error) {
	c, err := r.cacheFor(ctx, address)
	if err != nil {
		return nil, err
	}
	return NewVault(r.chainID, address, r.caller, c)
}

func (r *MetaReader) token(ctx context.Context, address string) (*ERC20, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid token address: %s", address)
	}
	addr := common.HexToAddress(address)
	c, err := r.cacheFor(ctx, addr)
	if err != nil {
		return nil, err
	}
	return NewERC20(r.chainID, addr, r.caller, c)
}

func (r *MetaReader) pool(ctx context.Context, address common.Address) (*Pool, error) {
	c, err := r.cacheFor(ctx, address)
	if err != nil {
		return nil, err
	}
	return NewPool(r.chainID, address, r.flavor, r.caller, c)
}

// ContractMeta reads the tokens of the contract that emitted a log of the
// given family and the token decimals. Vaults also report their own decimals
// and, best effort, their pool. Pools have no decimals of their own.
func (r *MetaReader) ContractMeta(ctx context.Context, address common.Address, family topics.Family, block uint64) (model.ContractMeta, error) {
	if family == topics.FamilyUniswapV3 {
		return r.poolMeta(ctx, address, block)
	}
	return r.vaultMeta(ctx, address, block)
}

func (r *MetaReader) vaultMeta(ctx context.Context, address common.Address, block uint64) (model.ContractMeta, error) {
	meta := model.ContractMeta{Address: strings.ToLower(address.Hex())}

	vault, err := r.vault(ctx, address)
	if err != nil {
		return meta, err
	}
	if meta.Token0, err = vault.Token0(ctx, block); err != nil {
		return meta, fmt.Errorf("token0: %w", err)
	}
	if meta.Token1, err = vault.Token1(ctx, block); err != nil {
		return meta, fmt.Errorf("token1: %w", err)
	}
	if meta.DecimalsContract, err = vault.Decimals(ctx, block); err != nil {
		return meta, fmt.Errorf("vault decimals: %w", err)
	}
	if err := r.tokenDecimals(ctx, &meta, block); err != nil {
		return meta, err
	}

	if pool, err := vault.Pool(ctx, block); err == nil {
		meta.Pool = pool
	} else {
		r.logger.Debug("vault pool call failed", zap.String("vault", meta.Address), zap.Error(err))
	}
	return meta, nil
}

func (r *MetaReader) poolMeta(ctx context.Context, address common.Address, block uint64) (model.ContractMeta, error) {
	meta := model.ContractMeta{
		Address: strings.ToLower(address.Hex()),
		Pool:    strings.ToLower(address.Hex()),
	}

	pool, err := r.pool(ctx, address)
	if err != nil {
		return meta, err
	}
	if meta.Token0, err = pool.Token0(ctx, block); err != nil {
		return meta, fmt.Errorf("pool token0: %w", err)
	}
	if meta.Token1, err = pool.Token1(ctx, block); err != nil {
		return meta, fmt.Errorf("pool token1: %w", err)
	}
	if err := r.tokenDecimals(ctx, &meta, block); err != nil {
		return meta, err
	}
	return meta, nil
}

func (r *MetaReader) tokenDecimals(ctx context.Context, meta *model.ContractMeta, block uint64) error {
	token0, err := r.token(ctx, meta.Token0)
	if err != nil {
		return err
	}
	if meta.DecimalsToken0, err = token0.Decimals(ctx, block); err != nil {
		return fmt.Errorf("token0 decimals: %w", err)
	}
	token1, err := r.token(ctx, meta.Token1)
	if err != nil {
		return err
	}
	if meta.DecimalsToken1, err = token1.Decimals(ctx, block); err != nil {
		return fmt.Errorf("token1 decimals: %w", err)
	}
	return nil
}

// PoolState reads the state of the vault's pool at block with the configured
// flavor. Liquidity is best effort.
func (r *MetaReader) PoolState(ctx context.Context, address common.Address, block uint64) (model.PoolSlot0, error) {
	vault, err := r.vault(ctx, address)
	if err != nil {
		return model.PoolSlot0{}, err
	}
	poolAddress, err := vault.Pool(ctx, block)
	if err != nil {
		return model.PoolSlot0{}, fmt.Errorf("vault pool: %w", err)
	}
	pool, err := r.pool(ctx, common.HexToAddress(poolAddress))
	if err != nil {
		return model.PoolSlot0{}, err
	}
	state, err := pool.State(ctx, block)
	if err != nil {
		return model.PoolSlot0{}, err
	}
	if liquidity, err := pool.Liquidity(ctx, block); err == nil {
		state.Liquidity = liquidity
	} else {
		r.logger.Debug("pool liquidity call failed", zap.String("pool", poolAddress), zap.Error(err))
	}
	return state, nil
}
