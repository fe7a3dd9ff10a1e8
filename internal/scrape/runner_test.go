package scrape

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/cache"
	"vaultScope/internal/chain"
	"vaultScope/internal/contract"
	"vaultScope/internal/model"
	"vaultScope/internal/topics"
)

var (
	vaultAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	token0Addr = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	token1Addr = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	userAddr   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

const genesisTime = 1_000_000

type callKey struct {
	address  common.Address
	selector string
}

type fakeChain struct {
	mu          sync.Mutex
	chainID     uint64
	chainIDErr  error
	heads       uint64
	logs        []types.Log
	failFilter  int
	filterCalls int
	responses   map[callKey][]byte
}

func (f *fakeChain) ts(n uint64) uint64 { return genesisTime + 2*n }

func (f *fakeChain) GetChainID(context.Context) (uint64, error) {
	return f.chainID, f.chainIDErr
}

func (f *fakeChain) LatestBlock(context.Context) (model.Block, error) {
	return model.Block{Number: f.heads, Timestamp: f.ts(f.heads)}, nil
}

func (f *fakeChain) BlockByNumber(_ context.Context, n uint64) (model.Block, error) {
	if n > f.heads {
		return model.Block{}, fmt.Errorf("block %d: %w", n, chain.ErrBlockNotFound)
	}
	return model.Block{Number: n, Timestamp: f.ts(n)}, nil
}

func (f *fakeChain) BlockTimestamp(_ context.Context, n uint64) (uint64, error) {
	return f.ts(n), nil
}

func (f *fakeChain) FilterLogs(_ context.Context, from, to uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filterCalls++
	if f.failFilter > 0 {
		f.failFilter--
		return nil, errors.New("503 Service Unavailable")
	}

	var out []types.Log
	for _, log := range f.logs {
		if log.BlockNumber < from || log.BlockNumber > to {
			continue
		}
		if !containsAddress(addresses, log.Address) || !containsHash(topic0, log.Topics[0]) {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	resp, ok := f.responses[callKey{address: *msg.To, selector: common.Bytes2Hex(msg.Data[:4])}]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return resp, nil
}

func containsAddress(set []common.Address, a common.Address) bool {
	for _, s := range set {
		if s == a {
			return true
		}
	}
	return false
}

func containsHash(set []common.Hash, h common.Hash) bool {
	for _, s := range set {
		if s == h {
			return true
		}
	}
	return false
}

func (f *fakeChain) respond(t *testing.T, address common.Address, parsed abi.ABI, method string, values ...interface{}) {
	t.Helper()
	m := parsed.Methods[method]
	data, err := m.Outputs.Pack(values...)
	require.NoError(t, err)
	f.responses[callKey{address: address, selector: common.Bytes2Hex(m.ID)}] = data
}

func eventLog(t *testing.T, name string, block uint64, index uint, indexed []common.Hash, fields ...interface{}) types.Log {
	t.Helper()
	schema, ok := topics.ByName(name)
	require.True(t, ok)
	args := make(abi.Arguments, 0, len(schema.FieldTypes))
	for _, typ := range schema.FieldTypes {
		abiType, err := abi.NewType(typ, "", nil)
		require.NoError(t, err)
		args = append(args, abi.Argument{Type: abiType})
	}
	data, err := args.Pack(fields...)
	require.NoError(t, err)
	return types.Log{
		Address:     vaultAddr,
		Topics:      append([]common.Hash{schema.Topic}, indexed...),
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block))),
		BlockHash:   common.BigToHash(big.NewInt(int64(block) + 1_000_000)),
		Index:       index,
	}
}

func newFakeChain(t *testing.T) *fakeChain {
	t.Helper()
	f := &fakeChain{chainID: 137, heads: 2000, responses: make(map[callKey][]byte)}

	vaultABI, err := contract.VaultABI()
	require.NoError(t, err)
	tokenABI, err := contract.ERC20ABI()
	require.NoError(t, err)
	f.respond(t, vaultAddr, vaultABI, "token0", token0Addr)
	f.respond(t, vaultAddr, vaultABI, "token1", token1Addr)
	f.respond(t, vaultAddr, vaultABI, "decimals", uint8(18))
	f.respond(t, token0Addr, tokenABI, "decimals", uint8(6))
	f.respond(t, token1Addr, tokenABI, "decimals", uint8(18))

	userTopic := common.BytesToHash(userAddr.Bytes())
	f.logs = []types.Log{
		eventLog(t, "gamma_deposit", 600, 0, []common.Hash{userTopic, userTopic},
			big.NewInt(100), big.NewInt(50), big.NewInt(75)),
		eventLog(t, "gamma_rebalance", 900, 3, nil,
			big.NewInt(-10), big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4), big.NewInt(5)),
		eventLog(t, "gamma_deposit", 1500, 0, []common.Hash{userTopic, userTopic},
			big.NewInt(1), big.NewInt(1), big.NewInt(1)),
	}
	return f
}

type memSink struct {
	mu  sync.Mutex
	ops []model.Operation
}

func (m *memSink) PutOperations(_ context.Context, ops []model.Operation) error {
	m.mu.Lock()
	m.ops = append(m.ops, ops...)
	m.mu.Unlock()
	return nil
}

func TestRunJobResolvesTimesScansAndDecodes(t *testing.T) {
	fake := newFakeChain(t)
	fake.failFilter = 1
	sink := &memSink{}

	var progress int
	runner := NewRunner(Options{
		Retry:    RetryPolicy{Attempts: 3, Delay: time.Millisecond},
		Caches:   cache.NewManager(cache.FileStoreFactory(t.TempDir()), cache.Options{}),
		Progress: func(string, string, int, int) { progress++ },
	}, nil)

	result, err := runner.RunJob(context.Background(), Job{
		Network:           "polygon",
		Client:            fake,
		Addresses:         []common.Address{vaultAddr},
		Topics:            topics.FamilyTopics(topics.FamilyGamma),
		FromTime:          int64(fake.ts(500)),
		ToTime:            int64(fake.ts(1000)) + 1,
		MaxBlocksPerChunk: 100,
		Sink:              sink,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(137), result.ChainID)
	assert.Equal(t, uint64(500), result.FromBlock)
	assert.Equal(t, uint64(1000), result.ToBlock)
	assert.Equal(t, 2, result.Logs)
	require.Len(t, result.Operations, 3)
	assert.Equal(t, model.KindDeposit, result.Operations[0].Kind)
	assert.Equal(t, model.KindRebalance, result.Operations[1].Kind)
	assert.Equal(t, model.KindFee, result.Operations[2].Kind)
	assert.Equal(t, uint8(6), result.Operations[0].DecimalsToken0)
	assert.Equal(t, fake.ts(600), result.Operations[0].Timestamp)
	assert.Len(t, sink.ops, 3)
	assert.Greater(t, progress, 0)

	// one failed attempt plus five windows of 100 blocks and one of 1.
	assert.Equal(t, 1+6, fake.filterCalls)
}

func TestRunIsolatesFailingJobs(t *testing.T) {
	healthy := newFakeChain(t)
	broken := newFakeChain(t)
	broken.chainIDErr = errors.New("invalid api key")

	runner := NewRunner(Options{Workers: 2, Retry: RetryPolicy{Attempts: 2, Delay: time.Millisecond}}, nil)
	jobs := []Job{
		{Network: "broken", Client: broken, Addresses: []common.Address{vaultAddr}, Topics: topics.FamilyTopics(), FromBlock: 1, ToBlock: 2000, MaxBlocksPerChunk: 2000},
		{Network: "healthy", Client: healthy, Addresses: []common.Address{vaultAddr}, Topics: topics.FamilyTopics(), FromBlock: 1, MaxBlocksPerChunk: 2000},
	}

	results, err := runner.Run(context.Background(), jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, uint64(2000), results[1].ToBlock)
	assert.Len(t, results[1].Operations, 4)
}

func TestResolveBlockRejectsInvalidTimestamp(t *testing.T) {
	runner := NewRunner(Options{Retry: RetryPolicy{Attempts: 3, Delay: time.Millisecond}}, nil)
	_, err := runner.ResolveBlock(context.Background(), newFakeChain(t), 0, 0, 0)
	require.Error(t, err)
}
