package scan

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddressesDedupes(t *testing.T) {
	got, err := ParseAddresses([]string{
		" 0x1111111111111111111111111111111111111111",
		"",
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = ParseAddresses([]string{"0x123"})
	assert.Error(t, err)
}

func TestParseTopics(t *testing.T) {
	named := common.HexToHash("0xabc")
	lookup := func(name string) (common.Hash, bool) {
		if name == "gamma_deposit" {
			return named, true
		}
		return common.Hash{}, false
	}

	got, err := ParseTopics([]string{
		"gamma_deposit",
		"0x4e2ca0515ed1aef1395f66b5303bb5d6f1bf9d61a353fa53f73f8ac9973fa9f6",
	}, lookup)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, named, got[0])

	_, err = ParseTopics([]string{"missing"}, lookup)
	assert.Error(t, err)
	_, err = ParseTopics([]string{"0x1234"}, lookup)
	assert.Error(t, err)
}

func TestToLogRecordLowercasesAddress(t *testing.T) {
	log := types.Log{
		Address:     common.HexToAddress("0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD"),
		Topics:      []common.Hash{common.HexToHash("0x01")},
		Data:        []byte{0xde, 0xad},
		BlockNumber: 77,
		Index:       3,
	}
	record := ToLogRecord(137, log)
	assert.Equal(t, "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", record.Address)
	assert.Equal(t, "0xdead", record.Data)
	assert.Equal(t, uint64(137), record.ChainID)
	assert.Equal(t, uint64(3), record.LogIndex)
	assert.Len(t, record.Topics, 1)
}
