package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/cache"
)

// Caller executes read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Binding is a contract at an address with its ABI and property cache. The
// cache may be nil.
type Binding struct {
	chainID uint64
	address common.Address
	parsed  abi.ABI
	caller  Caller
	cache   *cache.PropertyCache
}

func NewBinding(chainID uint64, address common.Address, parsed abi.ABI, caller Caller, c *cache.PropertyCache) *Binding {
	return &Binding{
		chainID: chainID,
		address: address,
		parsed:  parsed,
		caller:  caller,
		cache:   c,
	}
}

// Call invokes a view method at block, 0 meaning latest. It never caches.
func (b *Binding) Call(ctx context.Context, method string, block uint64) ([]interface{}, error) {
	return call(ctx, b.caller, b.address, b.parsed, method, block)
}

func call(ctx context.Context, caller Caller, address common.Address, parsed abi.ABI, method string, block uint64) ([]interface{}, error) {
	if caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	var blockPtr *big.Int
	if block > 0 {
		blockPtr = new(big.Int).SetUint64(block)
	}
	msg := ethereum.CallMsg{To: &address, Data: data}
	resp, err := caller.CallContract(ctx, msg, blockPtr)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return values, nil
}

// cachedValue reads one property through the cache. The property name is
// the method name.
func cachedValue[T any](ctx context.Context, b *Binding, method string, block uint64, convert func([]interface{}) (T, error)) (T, error) {
	key := cache.NewKey(b.chainID, b.address.Hex(), block, method)
	return cache.CachedCall(ctx, b.cache, key, func(ctx context.Context) (T, error) {
		var zero T
		values, err := b.Call(ctx, method, block)
		if err != nil {
			return zero, err
		}
		return convert(values)
	})
}

func firstAddress(values []interface{}) (string, error) {
	switch v := values[0].(type) {
	case common.Address:
		return strings.ToLower(v.Hex()), nil
	case *common.Address:
		return strings.ToLower(v.Hex()), nil
	default:
		return "", fmt.Errorf("unsupported address type %T", values[0])
	}
}

func firstUint8(values []interface{}) (uint8, error) {
	switch v := values[0].(type) {
	case uint8:
		return v, nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", values[0])
	}
}

func bigString(value interface{}) (string, error) {
	v, ok := value.(*big.Int)
	if !ok {
		return "", fmt.Errorf("unsupported int type %T", value)
	}
	return v.String(), nil
}

func firstBigString(values []interface{}) (string, error) {
	return bigString(values[0])
}
