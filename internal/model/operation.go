package model

// Kind identifies the operation type of a decoded log.
type Kind string

const (
	KindDeposit   Kind = "deposit"
	KindWithdraw  Kind = "withdraw"
	KindRebalance Kind = "rebalance"
	KindFee       Kind = "fee"
	KindTransfer  Kind = "transfer"
	KindCollect   Kind = "collect"
	KindApproval  Kind = "approval"
	KindSetFee    Kind = "setFee"
	KindZeroBurn  Kind = "zeroBurn"
)

// Plural returns the grouping key used in the downstream output document.
func (k Kind) Plural() string {
	switch k {
	case KindDeposit:
		return "deposits"
	case KindWithdraw:
		return "withdraws"
	case KindRebalance:
		return "rebalances"
	case KindFee:
		return "fees"
	case KindTransfer:
		return "transfers"
	case KindCollect:
		return "collects"
	case KindApproval:
		return "approvals"
	case KindSetFee:
		return "setFees"
	case KindZeroBurn:
		return "zeroBurns"
	default:
		return string(k) + "s"
	}
}

// Operation is a decoded, enriched log. Decoded holds the kind payload.
type Operation struct {
	ChainID          uint64      `json:"chain_id"`
	Kind             Kind        `json:"kind"`
	Topic            string      `json:"topic"`
	TxHash           string      `json:"transactionHash"`
	BlockHash        string      `json:"blockHash"`
	BlockNumber      uint64      `json:"blockNumber"`
	LogIndex         uint64      `json:"logIndex"`
	Address          string      `json:"contractAddress"`
	Timestamp        uint64      `json:"timestamp"`
	Token0           string      `json:"token0"`
	Token1           string      `json:"token1"`
	DecimalsToken0   uint8       `json:"decimals_token0"`
	DecimalsToken1   uint8       `json:"decimals_token1"`
	DecimalsContract uint8       `json:"decimals_contract"`
	Decoded          interface{} `json:"decoded"`
	PoolState        *PoolSlot0  `json:"pool_state,omitempty"`
}
