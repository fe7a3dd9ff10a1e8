package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "scraper",
		Short:        "Liquidity vault operations scraper",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	operationsCmd := &cobra.Command{
		Use:   "operations",
		Short: "Scrape and decode vault operations into grouped documents",
		RunE:  runOperations,
	}

	operationsCmd.Flags().String("network", "mainnet", "network name used for output files")
	operationsCmd.Flags().String("rpc", "", "RPC URL (single-chain mode)")
	operationsCmd.Flags().StringSlice("address", nil, "vault addresses (comma-separated)")
	operationsCmd.Flags().StringSlice("family", nil, "event families: gamma, arrakis, uniswapv3 (default all)")
	operationsCmd.Flags().StringSlice("topic", nil, "topic0 hashes or event names (overrides --family)")
	operationsCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	operationsCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	operationsCmd.Flags().String("from-time", "", "start timestamp (unix seconds or RFC3339)")
	operationsCmd.Flags().String("to-time", "", "end timestamp (unix seconds or RFC3339)")
	operationsCmd.Flags().Uint64("max-blocks-per-chunk", 2000, "blocks per log query")
	operationsCmd.Flags().Int("rate-limit", 10, "max RPC calls per second per chain, 0 disables")
	operationsCmd.Flags().String("flavor", "classic", "pool flavor: classic or algebra")
	operationsCmd.Flags().Bool("include-live-meta", false, "attach pool state to rebalances and fees (requires archive RPC)")
	operationsCmd.Flags().String("out-dir", "./data", "directory for <network>_operations.json")
	operationsCmd.Flags().String("jsonl", "", "optional JSONL stream of operations")
	operationsCmd.Flags().String("errors", "", "optional JSONL of dropped logs")
	operationsCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	operationsCmd.Flags().Bool("pg-operations", false, "upsert operations into Postgres")
	operationsCmd.Flags().String("cache-backend", "file", "property cache backend: file, postgres, redis, none")
	operationsCmd.Flags().String("cache-dir", "./data/cache", "property cache directory (file backend)")
	operationsCmd.Flags().String("redis-url", "", "Redis URL (redis backend)")
	operationsCmd.Flags().Bool("cache-reset", false, "discard persisted property caches")
	operationsCmd.Flags().Int("workers", 5, "chains scraped concurrently")
	operationsCmd.Flags().Int("retry-attempts", 3, "attempts per RPC step")
	operationsCmd.Flags().Duration("retry-delay", 2*time.Second, "delay between attempts")
	operationsCmd.Flags().Duration("resolver-deadline", 15*time.Second, "block search budget before a linear walk")
	operationsCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	operationsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(operationsCmd)

	blockCmd := &cobra.Command{
		Use:   "block",
		Short: "Resolve a timestamp to a block number",
		RunE:  runBlock,
	}

	blockCmd.Flags().String("rpc", "", "RPC URL")
	blockCmd.Flags().String("timestamp", "", "timestamp (unix seconds or RFC3339)")
	blockCmd.Flags().String("mode", "before", "inexact match side: before or after")
	blockCmd.Flags().String("position", "first", "among equal timestamps: first or last")
	blockCmd.Flags().Int("rate-limit", 10, "max RPC calls per second, 0 disables")
	blockCmd.Flags().Int("retry-attempts", 3, "attempts per RPC step")
	blockCmd.Flags().Duration("retry-delay", 2*time.Second, "delay between attempts")
	blockCmd.Flags().Duration("resolver-deadline", 15*time.Second, "block search budget before a linear walk")
	blockCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(blockCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// serveMetrics exposes the default prometheus registry until ctx is done.
func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server start", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", zap.Error(err))
	}
}
