package decode

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var twoTo256 = new(big.Int).Lsh(big.NewInt(1), 256)

// dataArguments builds the positional ABI arguments for a payload layout.
func dataArguments(types []string) (abi.Arguments, error) {
	args := make(abi.Arguments, 0, len(types))
	for _, typ := range types {
		t, err := abi.NewType(typ, "", nil)
		if err != nil {
			return nil, fmt.Errorf("abi type %s: %w", typ, err)
		}
		args = append(args, abi.Argument{Type: t})
	}
	return args, nil
}

// fieldReader reads typed values from an event's indexed topics and unpacked
// payload. The first failure sticks; later reads return zero values.
type fieldReader struct {
	topics []common.Hash
	values []interface{}
	err    error
}

func (r *fieldReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *fieldReader) topic(i int) (common.Hash, bool) {
	if i >= len(r.topics) {
		r.fail(fmt.Errorf("indexed field %d out of range", i))
		return common.Hash{}, false
	}
	return r.topics[i], true
}

func (r *fieldReader) value(i int) (interface{}, bool) {
	if i >= len(r.values) {
		r.fail(fmt.Errorf("field %d out of range", i))
		return nil, false
	}
	return r.values[i], true
}

// indexedAddress takes the low 20 bytes of the topic word.
func (r *fieldReader) indexedAddress(i int) string {
	word, ok := r.topic(i)
	if !ok {
		return ""
	}
	return lowerHex(common.BytesToAddress(word.Bytes()[12:]))
}

// indexedInt24 reads a sign-extended int24 topic word.
func (r *fieldReader) indexedInt24(i int) int32 {
	word, ok := r.topic(i)
	if !ok {
		return 0
	}
	value := new(big.Int).SetBytes(word.Bytes())
	if word[0]&0x80 != 0 {
		value.Sub(value, twoTo256)
	}
	tick, err := int24FromBig(value)
	if err != nil {
		r.fail(fmt.Errorf("indexed field %d: %w", i, err))
	}
	return tick
}

func (r *fieldReader) address(i int) string {
	raw, ok := r.value(i)
	if !ok {
		return ""
	}
	addr, err := asAddress(raw)
	if err != nil {
		r.fail(fmt.Errorf("field %d: %w", i, err))
		return ""
	}
	return lowerHex(addr)
}

func (r *fieldReader) amount(i int) string {
	raw, ok := r.value(i)
	if !ok {
		return ""
	}
	value, err := asBigInt(raw)
	if err != nil {
		r.fail(fmt.Errorf("field %d: %w", i, err))
		return ""
	}
	return value.String()
}

func (r *fieldReader) int24(i int) int32 {
	raw, ok := r.value(i)
	if !ok {
		return 0
	}
	value, err := asBigInt(raw)
	if err != nil {
		r.fail(fmt.Errorf("field %d: %w", i, err))
		return 0
	}
	tick, err := int24FromBig(value)
	if err != nil {
		r.fail(fmt.Errorf("field %d: %w", i, err))
	}
	return tick
}

func (r *fieldReader) small(i int) uint8 {
	raw, ok := r.value(i)
	if !ok {
		return 0
	}
	value, err := asUint8(raw)
	if err != nil {
		r.fail(fmt.Errorf("field %d: %w", i, err))
	}
	return value
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func lowerHex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
