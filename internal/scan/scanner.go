package scan

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"vaultScope/internal/metrics"
)

// ProgressFunc reports scan progress: a description, the number of units
// left and the total.
type ProgressFunc func(text string, remaining, total int)

// LogFilterer runs one filtered log query over an inclusive block range.
type LogFilterer interface {
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// Config controls scanner behavior.
type Config struct {
	MaxBlocksPerChunk uint64
	Progress          ProgressFunc
}

// Scanner splits wide log queries into provider-safe windows.
type Scanner struct {
	cfg      Config
	filterer LogFilterer
	logger   *zap.Logger
}

// NewScanner builds a Scanner over filterer.
func NewScanner(cfg Config, filterer LogFilterer, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{cfg: cfg, filterer: filterer, logger: logger}
}

// Scan returns an iterator over every log in [from, to] emitted by addresses
// with topic0 in topics. Windows are queried lazily as the iterator advances.
func (s *Scanner) Scan(from, to uint64, addresses []common.Address, topics []common.Hash) (*Iterator, error) {
	if s.filterer == nil {
		return nil, fmt.Errorf("log filterer is nil")
	}
	windows, err := Windows(from, to, s.cfg.MaxBlocksPerChunk)
	if err != nil {
		return nil, err
	}
	return &Iterator{
		scanner:   s,
		windows:   windows,
		addresses: addresses,
		topics:    topics,
	}, nil
}

// Iterator yields logs in ascending (block, log index) order. It is finite
// and cannot be restarted; a failed window stops it and sets Err.
type Iterator struct {
	scanner   *Scanner
	windows   []Window
	addresses []common.Address
	topics    []common.Hash

	next    int
	buf     []types.Log
	pos     int
	current types.Log
	err     error
	done    bool
}

// Next advances to the next log, querying further windows as needed.
func (it *Iterator) Next(ctx context.Context) bool {
	for {
		if it.done {
			return false
		}
		if it.pos < len(it.buf) {
			it.current = it.buf[it.pos]
			it.pos++
			return true
		}
		if it.next >= len(it.windows) {
			it.done = true
			return false
		}
		if err := ctx.Err(); err != nil {
			it.fail(err)
			return false
		}
		if err := it.fetch(ctx); err != nil {
			it.fail(err)
			return false
		}
	}
}

func (it *Iterator) fetch(ctx context.Context) error {
	w := it.windows[it.next]
	it.next++

	logs, err := it.scanner.filterer.FilterLogs(ctx, w.From, w.To, it.addresses, it.topics)
	if err != nil {
		return fmt.Errorf("filter logs %d-%d: %w", w.From, w.To, err)
	}
	metrics.ScanWindowsTotal.Inc()
	metrics.ScanLogsTotal.Add(float64(len(logs)))

	it.scanner.logger.Debug("window scanned",
		zap.Uint64("from", w.From),
		zap.Uint64("to", w.To),
		zap.Int("logs", len(logs)),
	)
	if it.scanner.cfg.Progress != nil {
		it.scanner.cfg.Progress(
			fmt.Sprintf("scanning blocks %d-%d", w.From, w.To),
			len(it.windows)-it.next,
			len(it.windows),
		)
	}

	it.buf = logs
	it.pos = 0
	return nil
}

func (it *Iterator) fail(err error) {
	it.err = err
	it.done = true
	it.buf = nil
}

// Log returns the log at the current position.
func (it *Iterator) Log() types.Log {
	return it.current
}

// Err returns the error that stopped the iterator, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Windows returns the number of windows the scan covers.
func (it *Iterator) Windows() int {
	return len(it.windows)
}

// Collect drains the iterator into a slice.
func (it *Iterator) Collect(ctx context.Context) ([]types.Log, error) {
	var out []types.Log
	for it.Next(ctx) {
		out = append(out, it.Log())
	}
	return out, it.Err()
}
