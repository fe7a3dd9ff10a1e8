package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/blocktime"
	"vaultScope/internal/cache"
	"vaultScope/internal/chain"
	"vaultScope/internal/config"
	"vaultScope/internal/contract"
	"vaultScope/internal/ratelimit"
	"vaultScope/internal/scan"
	"vaultScope/internal/scrape"
	"vaultScope/internal/storage"
	"vaultScope/internal/storage/postgres"
	redisstore "vaultScope/internal/storage/redis"
	"vaultScope/internal/topics"
)

func runOperations(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOperations(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, logger)
	}

	var pgStore *postgres.Store
	if cfg.PGOperations || cfg.Cache.Backend == config.CachePostgres {
		pgStore, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	caches, closeCaches, err := newCacheManager(ctx, cfg.Cache, pgStore)
	if err != nil {
		return err
	}
	defer closeCaches()

	var errSink storage.ErrorSink
	if cfg.Errors != "" {
		errSink = storage.NewJsonlStorage(cfg.Errors)
	}
	var jsonlSink storage.Sink
	if cfg.JSONL != "" {
		jsonlSink = storage.NewJsonlStorage(cfg.JSONL)
	}

	jobs := make([]scrape.Job, 0, len(cfg.Chains))
	outputs := make([]*storage.GroupedFile, 0, len(cfg.Chains))
	for _, chainCfg := range cfg.Chains {
		client, err := chain.NewClient(ctx, chainCfg.RPCURL, ratelimit.NewLimiter(chainCfg.RateLimit, chainCfg.Name))
		if err != nil {
			return fmt.Errorf("connect rpc %s: %w", chainCfg.Name, err)
		}
		defer client.Close()

		job, err := buildJob(chainCfg, client)
		if err != nil {
			return fmt.Errorf("chain %s: %w", chainCfg.Name, err)
		}

		output := storage.NewGroupedFile(storage.OperationsPath(cfg.OutDir, chainCfg.Name))
		sinks := storage.MultiSink{output}
		if jsonlSink != nil {
			sinks = append(sinks, jsonlSink)
		}
		if cfg.PGOperations {
			sinks = append(sinks, pgStore)
		}
		job.Sink = sinks
		job.Errors = errSink

		jobs = append(jobs, job)
		outputs = append(outputs, output)
	}

	runner := scrape.NewRunner(scrape.Options{
		Workers:  cfg.Workers,
		Retry:    scrape.RetryPolicy{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay},
		Caches:   caches,
		Resolver: blocktime.Config{Deadline: cfg.ResolverDeadline},
		Progress: func(network, text string, remaining, total int) {
			logger.Debug("progress",
				zap.String("network", network),
				zap.String("step", text),
				zap.Int("remaining", remaining),
				zap.Int("total", total),
			)
		},
	}, logger)

	logger.Info("operations start",
		zap.Int("chains", len(jobs)),
		zap.Int("workers", cfg.Workers),
		zap.String("out_dir", cfg.OutDir),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("cache_reset", cfg.Cache.Reset),
	)

	results, runErr := runner.Run(ctx, jobs)
	for i, result := range results {
		if result.Err != nil {
			logger.Error("chain failed", zap.String("network", result.Network), zap.Error(result.Err))
			continue
		}
		if err := outputs[i].Flush(); err != nil {
			logger.Error("write operations failed", zap.String("network", result.Network), zap.Error(err))
			continue
		}
		logger.Info("chain done",
			zap.String("network", result.Network),
			zap.Uint64("chain_id", result.ChainID),
			zap.Uint64("from", result.FromBlock),
			zap.Uint64("to", result.ToBlock),
			zap.Int("logs", result.Logs),
			zap.Int("operations", len(result.Operations)),
			zap.Int("dropped", len(result.Dropped)),
		)
	}
	return runErr
}

func buildJob(c config.ChainConfig, client *chain.Client) (scrape.Job, error) {
	addresses, err := scan.ParseAddresses(c.Addresses)
	if err != nil {
		return scrape.Job{}, err
	}
	topicHashes, err := chainTopics(c)
	if err != nil {
		return scrape.Job{}, err
	}
	flavor, err := contract.ParseFlavor(c.Flavor)
	if err != nil {
		return scrape.Job{}, err
	}

	return scrape.Job{
		Network:           c.Name,
		Client:            client,
		Addresses:         addresses,
		Topics:            topicHashes,
		FromBlock:         c.FromBlock,
		ToBlock:           c.ToBlock,
		FromTime:          int64(c.FromTimestamp),
		ToTime:            int64(c.ToTimestamp),
		MaxBlocksPerChunk: c.MaxBlocksPerChunk,
		Flavor:            flavor,
		IncludeLiveMeta:   c.IncludeLiveMeta,
	}, nil
}

// chainTopics prefers explicit topics and falls back to the families, or
// every registered event.
func chainTopics(c config.ChainConfig) ([]common.Hash, error) {
	if len(c.Topics) > 0 {
		return scan.ParseTopics(c.Topics, topics.TopicByName)
	}
	families := make([]topics.Family, 0, len(c.Families))
	for _, name := range c.Families {
		family, ok := topics.ParseFamily(name)
		if !ok {
			return nil, fmt.Errorf("unknown event family: %s", name)
		}
		families = append(families, family)
	}
	return topics.FamilyTopics(families...), nil
}

func newCacheManager(ctx context.Context, cfg config.CacheConfig, pgStore *postgres.Store) (*cache.Manager, func(), error) {
	opts := cache.Options{Reset: cfg.Reset}
	switch cfg.Backend {
	case config.CacheFile:
		return cache.NewManager(cache.FileStoreFactory(cfg.Dir), opts), func() {}, nil
	case config.CachePostgres:
		return cache.NewManager(pgStore.CacheStoreFactory(), opts), func() {}, nil
	case config.CacheRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewManager(client.CacheStoreFactory(), opts), func() { _ = client.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}
