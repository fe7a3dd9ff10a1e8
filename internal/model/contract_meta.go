package model

// ContractMeta captures the immutable per-contract enrichment fields.
type ContractMeta struct {
	Address          string `json:"address"`
	Token0           string `json:"token0"`
	Token1           string `json:"token1"`
	DecimalsToken0   uint8  `json:"decimals_token0"`
	DecimalsToken1   uint8  `json:"decimals_token1"`
	DecimalsContract uint8  `json:"decimals_contract"`
	Pool             string `json:"pool,omitempty"`
}

// PoolSlot0 includes select pool state fields at a block.
type PoolSlot0 struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
	Liquidity    string `json:"liquidity,omitempty"`
}
