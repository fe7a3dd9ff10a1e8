package topics

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/model"
)

func TestKnownTopicHashes(t *testing.T) {
	cases := map[string]string{
		"gamma_deposit":  "0x4e2ca0515ed1aef1395f66b5303bb5d6f1bf9d61a353fa53f73f8ac9973fa9f6",
		"gamma_transfer": "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		"gamma_approval": "0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925",
	}
	for name, hex := range cases {
		hash, ok := TopicByName(name)
		require.True(t, ok, name)
		assert.Equal(t, common.HexToHash(hex), hash, name)
	}
}

func TestRegistryIsBidirectional(t *testing.T) {
	for _, def := range definitions {
		byHash, ok := Lookup(def.Topic)
		require.True(t, ok, def.Name)
		assert.Equal(t, def.Name, byHash.Name)

		named, ok := ByName(def.Name)
		require.True(t, ok, def.Name)
		assert.Equal(t, def.Topic, named.Topic)
	}

	schema, ok := LookupHex("0x4E2CA0515ED1AEF1395F66B5303BB5D6F1BF9D61A353FA53F73F8AC9973FA9F6")
	require.True(t, ok)
	assert.Equal(t, model.KindDeposit, schema.Kind)

	_, ok = LookupHex("0x" + "00")
	assert.False(t, ok)
}

func TestFamiliesShareOnlyERC20Events(t *testing.T) {
	gamma := FamilyTopics(FamilyGamma)
	arrakis := FamilyTopics(FamilyArrakis)
	assert.Len(t, gamma, 7)
	assert.Len(t, arrakis, 6)

	transfer, _ := TopicByName("gamma_transfer")
	approval, _ := TopicByName("gamma_approval")
	assert.Contains(t, arrakis, transfer)
	assert.Contains(t, arrakis, approval)

	seen := make(map[common.Hash]struct{}, len(gamma))
	for _, h := range gamma {
		seen[h] = struct{}{}
	}
	var shared []common.Hash
	for _, h := range arrakis {
		if _, dup := seen[h]; dup {
			shared = append(shared, h)
		}
	}
	assert.ElementsMatch(t, []common.Hash{transfer, approval}, shared)

	assert.Len(t, FamilyTopics(FamilyArrakis, FamilyGamma), 11, "shared events are listed once")
	assert.Len(t, FamilyTopics(FamilyUniswapV3), 1)
	assert.Len(t, FamilyTopics(), len(definitions))
}

func TestParseFamily(t *testing.T) {
	f, ok := ParseFamily(" Gamma ")
	assert.True(t, ok)
	assert.Equal(t, FamilyGamma, f)

	_, ok = ParseFamily("curve")
	assert.False(t, ok)
}
