package decode

import "vaultScope/internal/model"

// MirroredFeeTopic names the fee record derived from a gamma rebalance.
const MirroredFeeTopic = "gamma_fee"

type payload struct {
	kind  model.Kind
	topic string
	data  interface{}
}

type assembleFunc func(r *fieldReader) []payload

func single(kind model.Kind, data interface{}) []payload {
	return []payload{{kind: kind, data: data}}
}

// assemblers maps a registered event name to the construction of its
// operation payloads. Field indexes follow the registered layout.
var assemblers = map[string]assembleFunc{
	"gamma_deposit": func(r *fieldReader) []payload {
		return single(model.KindDeposit, model.DepositData{
			Sender:     r.indexedAddress(0),
			To:         r.indexedAddress(1),
			Shares:     r.amount(0),
			QttyToken0: r.amount(1),
			QttyToken1: r.amount(2),
		})
	},
	"gamma_withdraw": func(r *fieldReader) []payload {
		return single(model.KindWithdraw, model.WithdrawData{
			Sender:     r.indexedAddress(0),
			To:         r.indexedAddress(1),
			Shares:     r.amount(0),
			QttyToken0: r.amount(1),
			QttyToken1: r.amount(2),
		})
	},
	"gamma_rebalance": func(r *fieldReader) []payload {
		tick := r.int24(0)
		fee0, fee1 := r.amount(3), r.amount(4)
		return []payload{
			{
				kind: model.KindRebalance,
				data: model.RebalanceData{
					Tick:         &tick,
					TotalAmount0: r.amount(1),
					TotalAmount1: r.amount(2),
					QttyToken0:   fee0,
					QttyToken1:   fee1,
					TotalSupply:  r.amount(5),
				},
			},
			{
				kind:  model.KindFee,
				topic: MirroredFeeTopic,
				data:  model.FeeData{QttyToken0: fee0, QttyToken1: fee1},
			},
		}
	},
	"gamma_transfer": func(r *fieldReader) []payload {
		return single(model.KindTransfer, model.TransferData{
			Source:      r.indexedAddress(0),
			Destination: r.indexedAddress(1),
			Qtty:        r.amount(0),
		})
	},
	"gamma_approval": func(r *fieldReader) []payload {
		return single(model.KindApproval, model.ApprovalData{
			Owner:   r.indexedAddress(0),
			Spender: r.indexedAddress(1),
			Value:   r.amount(0),
		})
	},
	"gamma_setFee": func(r *fieldReader) []payload {
		return single(model.KindSetFee, model.SetFeeData{Fee: r.small(0)})
	},
	"gamma_zeroBurn": func(r *fieldReader) []payload {
		return single(model.KindZeroBurn, model.ZeroBurnData{
			Fee:        r.small(0),
			QttyToken0: r.amount(1),
			QttyToken1: r.amount(2),
		})
	},
	// Arrakis mints and burns carry only the receiver.
	"arrakis_deposit": func(r *fieldReader) []payload {
		receiver := r.address(0)
		return single(model.KindDeposit, model.DepositData{
			Sender:     receiver,
			To:         receiver,
			Shares:     r.amount(1),
			QttyToken0: r.amount(2),
			QttyToken1: r.amount(3),
		})
	},
	"arrakis_withdraw": func(r *fieldReader) []payload {
		receiver := r.address(0)
		return single(model.KindWithdraw, model.WithdrawData{
			Sender:     receiver,
			To:         receiver,
			Shares:     r.amount(1),
			QttyToken0: r.amount(2),
			QttyToken1: r.amount(3),
		})
	},
	"arrakis_rebalance": func(r *fieldReader) []payload {
		lower, upper := r.int24(0), r.int24(1)
		return single(model.KindRebalance, model.RebalanceData{
			LowerTick:       &lower,
			UpperTick:       &upper,
			LiquidityBefore: r.amount(2),
			LiquidityAfter:  r.amount(3),
		})
	},
	"arrakis_fee": func(r *fieldReader) []payload {
		return single(model.KindFee, model.FeeData{
			QttyToken0: r.amount(0),
			QttyToken1: r.amount(1),
		})
	},
	"uniswapv3_collect": func(r *fieldReader) []payload {
		return single(model.KindCollect, model.CollectData{
			Owner:      r.indexedAddress(0),
			Recipient:  r.address(0),
			LowerTick:  r.indexedInt24(1),
			UpperTick:  r.indexedInt24(2),
			QttyToken0: r.amount(1),
			QttyToken1: r.amount(2),
		})
	},
}
