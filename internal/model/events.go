package model

// DepositData is the payload of a vault deposit.
type DepositData struct {
	Sender     string `json:"sender"`
	To         string `json:"to"`
	Shares     string `json:"shares"`
	QttyToken0 string `json:"qtty_token0"`
	QttyToken1 string `json:"qtty_token1"`
}

// WithdrawData is the payload of a vault withdrawal.
type WithdrawData struct {
	Sender     string `json:"sender"`
	To         string `json:"to"`
	Shares     string `json:"shares"`
	QttyToken0 string `json:"qtty_token0"`
	QttyToken1 string `json:"qtty_token1"`
}

// RebalanceData is the payload of a vault rebalance. Fields a family does not
// emit stay empty.
type RebalanceData struct {
	Tick            *int32 `json:"tick"`
	LowerTick       *int32 `json:"lowerTick"`
	UpperTick       *int32 `json:"upperTick"`
	TotalAmount0    string `json:"totalAmount0,omitempty"`
	TotalAmount1    string `json:"totalAmount1,omitempty"`
	QttyToken0      string `json:"qtty_token0,omitempty"`
	QttyToken1      string `json:"qtty_token1,omitempty"`
	TotalSupply     string `json:"totalSupply,omitempty"`
	LiquidityBefore string `json:"liquidityBefore,omitempty"`
	LiquidityAfter  string `json:"liquidityAfter,omitempty"`
}

// FeeData is the payload of a fee collection. LowerTick and UpperTick are
// null when the fee record is mirrored from a rebalance.
type FeeData struct {
	LowerTick  *int32 `json:"lowerTick"`
	UpperTick  *int32 `json:"upperTick"`
	QttyToken0 string `json:"qtty_token0"`
	QttyToken1 string `json:"qtty_token1"`
}

// TransferData is the payload of a share transfer.
type TransferData struct {
	Source      string `json:"src"`
	Destination string `json:"dst"`
	Qtty        string `json:"qtty"`
}

// ApprovalData is the payload of a share approval.
type ApprovalData struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Value   string `json:"value"`
}

// SetFeeData is the payload of a fee change.
type SetFeeData struct {
	Fee uint8 `json:"fee"`
}

// ZeroBurnData is the payload of a zero-liquidity burn that collects fees.
type ZeroBurnData struct {
	Fee        uint8  `json:"fee"`
	QttyToken0 string `json:"qtty_token0"`
	QttyToken1 string `json:"qtty_token1"`
}

// CollectData is the payload of a pool position collect.
type CollectData struct {
	Owner      string `json:"owner"`
	Recipient  string `json:"recipient"`
	LowerTick  int32  `json:"lowerTick"`
	UpperTick  int32  `json:"upperTick"`
	QttyToken0 string `json:"qtty_token0"`
	QttyToken1 string `json:"qtty_token1"`
}
