package cache

import "strings"

// DefaultFixed lists the properties that never change across blocks.
var DefaultFixed = []string{"symbol", "decimals", "factory", "name", "token0", "token1", "pool"}

// Key addresses one cached property value. Block 0 means latest.
type Key struct {
	ChainID  uint64
	Address  string
	Block    uint64
	Property string
}

// NewKey builds a normalized key.
func NewKey(chainID uint64, address string, block uint64, property string) Key {
	return Key{
		ChainID:  chainID,
		Address:  normalize(address),
		Block:    block,
		Property: normalize(property),
	}
}

// property drops the block from the key.
func (k Key) property() propertyKey {
	return propertyKey{chainID: k.ChainID, address: k.Address, property: k.Property}
}

type propertyKey struct {
	chainID  uint64
	address  string
	property string
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
