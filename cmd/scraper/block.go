package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/blocktime"
	"vaultScope/internal/chain"
	"vaultScope/internal/config"
	"vaultScope/internal/ratelimit"
	"vaultScope/internal/scrape"
)

func runBlock(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadBlock(cfgFile, cmd.Flags())
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

	client, err := chain.NewClient(ctx, cfg.RPCURL, ratelimit.NewLimiter(cfg.RateLimit, "block"))
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	runner := scrape.NewRunner(scrape.Options{
		Retry:    scrape.RetryPolicy{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay},
		Resolver: blocktime.Config{Deadline: cfg.ResolverDeadline},
	}, logger)

	block, err := runner.ResolveBlock(ctx, client, int64(cfg.Timestamp), cfg.Mode, cfg.Position)
	if err != nil {
		return err
	}

	logger.Info("block resolved",
		zap.Uint64("timestamp", cfg.Timestamp),
		zap.Uint64("block", block),
	)
	fmt.Fprintln(cmd.OutOrStdout(), block)
	return nil
}
