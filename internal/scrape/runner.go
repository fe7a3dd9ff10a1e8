package scrape

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vaultScope/internal/blocktime"
	"vaultScope/internal/cache"
	"vaultScope/internal/contract"
	"vaultScope/internal/decode"
	"vaultScope/internal/model"
	"vaultScope/internal/scan"
	"vaultScope/internal/storage"
)

const defaultWorkers = 5

// ChainClient is the chain capability a scrape job needs.
type ChainClient interface {
	blocktime.BlockSource
	scan.LogFilterer
	decode.BlockTimer
	contract.Caller
	GetChainID(ctx context.Context) (uint64, error)
}

// ProgressFunc receives progress of a job's scan and decode loops.
type ProgressFunc func(network, text string, remaining, total int)

// Job scrapes one chain. A zero FromBlock is resolved from FromTime, a zero
// ToBlock from ToTime or else the chain head.
type Job struct {
	Network           string
	Client            ChainClient
	Addresses         []common.Address
	Topics            []common.Hash
	FromBlock         uint64
	ToBlock           uint64
	FromTime          int64
	ToTime            int64
	MaxBlocksPerChunk uint64
	Flavor            contract.Flavor
	IncludeLiveMeta   bool
	Sink              storage.Sink
	Errors            storage.ErrorSink
}

// Result summarizes one job.
type Result struct {
	Network    string
	ChainID    uint64
	FromBlock  uint64
	ToBlock    uint64
	Logs       int
	Operations []model.Operation
	Dropped    []model.DecodeError
	Err        error
}

// Options configures a Runner.
type Options struct {
	Workers  int
	Retry    RetryPolicy
	Caches   *cache.Manager
	Resolver blocktime.Config
	Progress ProgressFunc
}

// Runner fans scrape jobs out over a bounded worker pool.
type Runner struct {
	opts   Options
	logger *zap.Logger
}

func NewRunner(opts Options, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry = DefaultRetry
	}
	return &Runner{opts: opts, logger: logger}
}

// Run executes every job and returns one result per job, in job order. A
// failing job does not stop the others; its error is joined into the
// returned error.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for i := range jobs {
		i := i
		g.Go(func() error {
			result, err := r.RunJob(ctx, jobs[i])
			result.Err = err
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, result := range results {
		if result.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", result.Network, result.Err))
		}
	}
	return results, errors.Join(errs...)
}

// RunJob resolves the job's block range, scans it and decodes the logs.
func (r *Runner) RunJob(ctx context.Context, job Job) (Result, error) {
	result := Result{Network: job.Network}
	if job.Client == nil {
		return result, fmt.Errorf("chain client is nil")
	}
	if len(job.Addresses) == 0 {
		return result, fmt.Errorf("at least one address is required")
	}
	logger := r.logger.With(zap.String("network", job.Network))
	start := time.Now()

	var chainID uint64
	err := r.opts.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		chainID, err = job.Client.GetChainID(ctx)
		return err
	})
	if err != nil {
		return result, fmt.Errorf("get chain id: %w", err)
	}
	result.ChainID = chainID

	from, to, err := r.blockRange(ctx, job)
	if err != nil {
		return result, err
	}
	result.FromBlock, result.ToBlock = from, to
	if from > to {
		logger.Info("nothing to scrape", zap.Uint64("from", from), zap.Uint64("to", to))
		return result, nil
	}

	logs, err := r.scanWithRetry(ctx, job, from, to, logger)
	if err != nil {
		return result, fmt.Errorf("scan logs: %w", err)
	}
	records := toRecords(chainID, logs)
	result.Logs = len(records)
	logger.Info("scan complete", zap.Int("logs", len(records)), zap.Uint64("from", from), zap.Uint64("to", to))

	reader := contract.NewMetaReader(chainID, job.Client, r.opts.Caches, job.Flavor, logger)
	decodeCfg := decode.Config{Progress: r.progress(job.Network)}
	if job.IncludeLiveMeta {
		decodeCfg.PoolState = reader
	}
	decoder, err := decode.NewDecoder(decodeCfg, reader, job.Client, logger)
	if err != nil {
		return result, err
	}

	ops, dropped, err := decoder.DecodeAll(ctx, records)
	result.Operations, result.Dropped = ops, dropped
	if r.opts.Caches != nil {
		if flushErr := r.opts.Caches.Flush(ctx); flushErr != nil {
			logger.Warn("property cache flush failed", zap.Error(flushErr))
		}
	}
	if err != nil {
		return result, fmt.Errorf("decode logs: %w", err)
	}

	if job.Sink != nil {
		if err := job.Sink.PutOperations(ctx, ops); err != nil {
			return result, fmt.Errorf("store operations: %w", err)
		}
	}
	if job.Errors != nil {
		if err := job.Errors.PutDecodeErrors(ctx, dropped); err != nil {
			return result, fmt.Errorf("store decode errors: %w", err)
		}
	}

	logger.Info("scrape complete",
		zap.Int("operations", len(ops)),
		zap.Int("dropped", len(dropped)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// ResolveBlock converts a timestamp to a block with the runner's retry policy.
func (r *Runner) ResolveBlock(ctx context.Context, source blocktime.BlockSource, ts int64, mode blocktime.InexactMode, pos blocktime.EqualPosition) (uint64, error) {
	resolver := blocktime.NewResolver(r.opts.Resolver, source, r.logger)
	var block uint64
	err := r.opts.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		block, err = resolver.Resolve(ctx, ts, mode, pos)
		return err
	})
	return block, err
}

func (r *Runner) blockRange(ctx context.Context, job Job) (uint64, uint64, error) {
	from := job.FromBlock
	if from == 0 && job.FromTime > 0 {
		block, err := r.ResolveBlock(ctx, job.Client, job.FromTime, blocktime.After, blocktime.First)
		if err != nil {
			return 0, 0, fmt.Errorf("resolve from time %d: %w", job.FromTime, err)
		}
		from = block
	}

	to := job.ToBlock
	if to == 0 {
		if job.ToTime > 0 {
			block, err := r.ResolveBlock(ctx, job.Client, job.ToTime, blocktime.Before, blocktime.Last)
			if err != nil {
				return 0, 0, fmt.Errorf("resolve to time %d: %w", job.ToTime, err)
			}
			to = block
		} else {
			err := r.opts.Retry.Do(ctx, func(ctx context.Context) error {
				latest, err := job.Client.LatestBlock(ctx)
				to = latest.Number
				return err
			})
			if err != nil {
				return 0, 0, fmt.Errorf("get latest block: %w", err)
			}
		}
	}
	return from, to, nil
}

// scanWithRetry retries the whole scan; iterators are not restartable.
func (r *Runner) scanWithRetry(ctx context.Context, job Job, from, to uint64, logger *zap.Logger) ([]types.Log, error) {
	scanner := scan.NewScanner(scan.Config{
		MaxBlocksPerChunk: job.MaxBlocksPerChunk,
		Progress:          scan.ProgressFunc(r.progress(job.Network)),
	}, job.Client, logger)

	var logs []types.Log
	err := r.opts.Retry.Do(ctx, func(ctx context.Context) error {
		it, err := scanner.Scan(from, to, job.Addresses, job.Topics)
		if err != nil {
			return err
		}
		logs, err = it.Collect(ctx)
		if err != nil {
			logger.Warn("scan failed", zap.Error(err), zap.Uint64("from", from), zap.Uint64("to", to))
		}
		return err
	})
	return logs, err
}

func (r *Runner) progress(network string) func(string, int, int) {
	if r.opts.Progress == nil {
		return nil
	}
	var mu sync.Mutex
	return func(text string, remaining, total int) {
		mu.Lock()
		defer mu.Unlock()
		r.opts.Progress(network, text, remaining, total)
	}
}

// toRecords normalizes logs, skipping removed and duplicate entries.
func toRecords(chainID uint64, logs []types.Log) []model.LogRecord {
	seen := make(map[string]struct{}, len(logs))
	records := make([]model.LogRecord, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		records = append(records, scan.ToLogRecord(chainID, log))
	}
	return records
}
