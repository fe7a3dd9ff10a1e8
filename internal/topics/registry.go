package topics

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"vaultScope/internal/model"
)

// Family groups the events of one protocol.
type Family string

const (
	FamilyGamma     Family = "gamma"
	FamilyArrakis   Family = "arrakis"
	FamilyUniswapV3 Family = "uniswapv3"
)

// Schema describes how to decode one event. IndexedTypes lists the ABI
// types of topics[1:], FieldTypes those of the data payload in order.
// SharedWith names other families whose contracts emit the same event.
type Schema struct {
	Name         string
	Family       Family
	Kind         model.Kind
	Signature    string
	IndexedTypes []string
	FieldTypes   []string
	SharedWith   []Family
	Topic        common.Hash
}

// definitions is keyed by topic hash, so one event has one schema. Vault
// share Transfer and Approval are plain ERC20 events: arrakis vaults emit
// them too, and their operations carry the gamma_transfer and gamma_approval
// topic names.
var definitions = []Schema{
	{
		Name:         "gamma_deposit",
		Family:       FamilyGamma,
		Kind:         model.KindDeposit,
		Signature:    "Deposit(address,address,uint256,uint256,uint256)",
		IndexedTypes: []string{"address", "address"},
		FieldTypes:   []string{"uint256", "uint256", "uint256"},
	},
	{
		Name:         "gamma_withdraw",
		Family:       FamilyGamma,
		Kind:         model.KindWithdraw,
		Signature:    "Withdraw(address,address,uint256,uint256,uint256)",
		IndexedTypes: []string{"address", "address"},
		FieldTypes:   []string{"uint256", "uint256", "uint256"},
	},
	{
		Name:       "gamma_rebalance",
		Family:     FamilyGamma,
		Kind:       model.KindRebalance,
		Signature:  "Rebalance(int24,uint256,uint256,uint256,uint256,uint256)",
		FieldTypes: []string{"int24", "uint256", "uint256", "uint256", "uint256", "uint256"},
	},
	{
		Name:         "gamma_transfer",
		Family:       FamilyGamma,
		Kind:         model.KindTransfer,
		Signature:    "Transfer(address,address,uint256)",
		IndexedTypes: []string{"address", "address"},
		FieldTypes:   []string{"uint256"},
		SharedWith:   []Family{FamilyArrakis},
	},
	{
		Name:         "gamma_approval",
		Family:       FamilyGamma,
		Kind:         model.KindApproval,
		Signature:    "Approval(address,address,uint256)",
		IndexedTypes: []string{"address", "address"},
		FieldTypes:   []string{"uint256"},
		SharedWith:   []Family{FamilyArrakis},
	},
	{
		Name:       "gamma_setFee",
		Family:     FamilyGamma,
		Kind:       model.KindSetFee,
		Signature:  "SetFee(uint8)",
		FieldTypes: []string{"uint8"},
	},
	{
		Name:       "gamma_zeroBurn",
		Family:     FamilyGamma,
		Kind:       model.KindZeroBurn,
		Signature:  "ZeroBurn(uint8,uint256,uint256)",
		FieldTypes: []string{"uint8", "uint256", "uint256"},
	},
	{
		Name:       "arrakis_deposit",
		Family:     FamilyArrakis,
		Kind:       model.KindDeposit,
		Signature:  "Minted(address,uint256,uint256,uint256,uint128)",
		FieldTypes: []string{"address", "uint256", "uint256", "uint256", "uint128"},
	},
	{
		Name:       "arrakis_withdraw",
		Family:     FamilyArrakis,
		Kind:       model.KindWithdraw,
		Signature:  "Burned(address,uint256,uint256,uint256,uint128)",
		FieldTypes: []string{"address", "uint256", "uint256", "uint256", "uint128"},
	},
	{
		Name:       "arrakis_rebalance",
		Family:     FamilyArrakis,
		Kind:       model.KindRebalance,
		Signature:  "Rebalance(int24,int24,uint128,uint128)",
		FieldTypes: []string{"int24", "int24", "uint128", "uint128"},
	},
	{
		Name:       "arrakis_fee",
		Family:     FamilyArrakis,
		Kind:       model.KindFee,
		Signature:  "FeesEarned(uint256,uint256)",
		FieldTypes: []string{"uint256", "uint256"},
	},
	{
		Name:         "uniswapv3_collect",
		Family:       FamilyUniswapV3,
		Kind:         model.KindCollect,
		Signature:    "Collect(address,address,int24,int24,uint128,uint128)",
		IndexedTypes: []string{"address", "int24", "int24"},
		FieldTypes:   []string{"address", "uint128", "uint128"},
	},
}

var (
	byName  map[string]Schema
	byTopic map[common.Hash]Schema
)

func init() {
	byName = make(map[string]Schema, len(definitions))
	byTopic = make(map[common.Hash]Schema, len(definitions))
	for i := range definitions {
		def := &definitions[i]
		def.Topic = crypto.Keccak256Hash([]byte(def.Signature))
		byName[strings.ToLower(def.Name)] = *def
		byTopic[def.Topic] = *def
	}
}

// Lookup returns the schema registered for a topic hash.
func Lookup(topic common.Hash) (Schema, bool) {
	schema, ok := byTopic[topic]
	return schema, ok
}

// LookupHex returns the schema for a hex-encoded topic hash.
func LookupHex(topic string) (Schema, bool) {
	if topic == "" {
		return Schema{}, false
	}
	return Lookup(common.HexToHash(topic))
}

// ByName returns the schema registered under a name such as "gamma_deposit".
func ByName(name string) (Schema, bool) {
	schema, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return schema, ok
}

// TopicByName resolves a name to its topic hash.
func TopicByName(name string) (common.Hash, bool) {
	schema, ok := ByName(name)
	return schema.Topic, ok
}

// All returns every registered schema in registration order.
func All() []Schema {
	out := make([]Schema, len(definitions))
	copy(out, definitions)
	return out
}

// FamilyTopics returns the topic hashes of the given families, including
// the events they share, in registration order. No families means every
// registered topic.
func FamilyTopics(families ...Family) []common.Hash {
	want := make(map[Family]struct{}, len(families))
	for _, f := range families {
		want[f] = struct{}{}
	}
	out := make([]common.Hash, 0, len(definitions))
	for _, def := range definitions {
		if len(families) == 0 || def.emittedBy(want) {
			out = append(out, def.Topic)
		}
	}
	return out
}

func (s Schema) emittedBy(families map[Family]struct{}) bool {
	if _, ok := families[s.Family]; ok {
		return true
	}
	for _, f := range s.SharedWith {
		if _, ok := families[f]; ok {
			return true
		}
	}
	return false
}

// ParseFamily normalizes a family name.
func ParseFamily(name string) (Family, bool) {
	switch Family(strings.ToLower(strings.TrimSpace(name))) {
	case FamilyGamma:
		return FamilyGamma, true
	case FamilyArrakis:
		return FamilyArrakis, true
	case FamilyUniswapV3:
		return FamilyUniswapV3, true
	default:
		return "", false
	}
}
