package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/ratelimit"
)

// Client wraps go-ethereum RPC and provides the block, log and call
// capabilities the scraper needs. Every outbound call waits on the limiter.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	limiter   *ratelimit.Limiter

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NewClient creates a new chain client from the RPC URL. limiter may be nil.
func NewClient(ctx context.Context, rpcURL string, limiter *ratelimit.Limiter) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		limiter:   limiter,
		tsCache:   make(map[uint64]uint64),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	id, err := c.ethClient.ChainID(ctx)
	record("eth_chainId", err)
	if err != nil {
		return 0, err
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("chain id does not fit in uint64: %s", id)
	}
	return id.Uint64(), nil
}

// LatestBlock returns the latest block.
func (c *Client) LatestBlock(ctx context.Context) (model.Block, error) {
	return c.header(ctx, nil)
}

// BlockByNumber returns the block at number, or ErrBlockNotFound.
func (c *Client) BlockByNumber(ctx context.Context, number uint64) (model.Block, error) {
	block, err := c.header(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return model.Block{}, err
	}
	c.mu.Lock()
	c.tsCache[block.Number] = block.Timestamp
	c.mu.Unlock()
	return block, nil
}

func (c *Client) header(ctx context.Context, number *big.Int) (model.Block, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.Block{}, err
	}
	header, err := c.ethClient.HeaderByNumber(ctx, number)
	if errors.Is(err, ethereum.NotFound) {
		record("eth_getBlockByNumber", nil)
		return model.Block{}, fmt.Errorf("block %v: %w", number, ErrBlockNotFound)
	}
	record("eth_getBlockByNumber", err)
	if err != nil {
		return model.Block{}, err
	}
	return model.Block{Number: header.Number.Uint64(), Timestamp: header.Time}, nil
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	block, err := c.BlockByNumber(ctx, number)
	if err != nil {
		return 0, err
	}
	return block.Timestamp, nil
}

// FilterLogs returns logs in the given range for addresses and topic0 filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	logs, err := c.ethClient.FilterLogs(ctx, query)
	record("eth_getLogs", err)
	return logs, err
}

// CallContract performs an eth_call for a contract method. A nil block
// number reads the latest state.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	out, err := c.ethClient.CallContract(ctx, msg, blockNumber)
	record("eth_call", err)
	return out, err
}

func record(method string, err error) {
	metrics.RPCCallsTotal.WithLabelValues(method, Classify(err)).Inc()
}
