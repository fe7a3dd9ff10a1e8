package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/blocktime"
)

func operationFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("operations", pflag.ContinueOnError)
	flags.String("network", "mainnet", "")
	flags.String("rpc", "", "")
	flags.StringSlice("address", nil, "")
	flags.StringSlice("family", nil, "")
	flags.StringSlice("topic", nil, "")
	flags.Uint64("from", 0, "")
	flags.Uint64("to", 0, "")
	flags.String("from-time", "", "")
	flags.String("to-time", "", "")
	flags.Uint64("max-blocks-per-chunk", 2000, "")
	flags.String("cache-backend", CacheFile, "")
	flags.String("pg-dsn", "", "")
	flags.Int("workers", 5, "")
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("1700000000")
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000), ts)

	ts, err = ParseTimestamp("2023-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, uint64(1672531200), ts)

	ts, err = ParseTimestamp("  ")
	require.NoError(t, err)
	assert.Zero(t, ts)

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestLoadOperationsSingleChainFromFlags(t *testing.T) {
	flags := operationFlags(t,
		"--network", "polygon",
		"--rpc", "https://polygon.example",
		"--address", "0x1111111111111111111111111111111111111111, 0x2222222222222222222222222222222222222222",
		"--family", "gamma",
		"--from-time", "1700000000",
	)

	cfg, err := LoadOperations("", flags)
	require.NoError(t, err)
	require.Len(t, cfg.Chains, 1)

	chain := cfg.Chains[0]
	assert.Equal(t, "polygon", chain.Name)
	assert.Equal(t, "https://polygon.example", chain.RPCURL)
	assert.Len(t, chain.Addresses, 2)
	assert.Equal(t, []string{"gamma"}, chain.Families)
	assert.Equal(t, uint64(1700000000), chain.FromTimestamp)
	assert.Equal(t, uint64(2000), chain.MaxBlocksPerChunk)
	assert.Equal(t, 10, chain.RateLimit)
	assert.Equal(t, CacheFile, cfg.Cache.Backend)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
}

func TestLoadOperationsChainsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workers: 3
chains:
  - name: polygon
    rpc_url: https://polygon.example
    addresses: ["0x1111111111111111111111111111111111111111"]
    families: [gamma]
    from_time: "2023-01-01T00:00:00Z"
    max_blocks_per_chunk: 500
  - name: arbitrum
    rpc_url: https://arbitrum.example
    addresses: ["0x2222222222222222222222222222222222222222"]
    from_block: 100
    to_block: 200
    flavor: Algebra
    rate_limit: 4
`), 0o644))

	cfg, err := LoadOperations(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	require.Len(t, cfg.Chains, 2)

	assert.Equal(t, uint64(1672531200), cfg.Chains[0].FromTimestamp)
	assert.Equal(t, uint64(500), cfg.Chains[0].MaxBlocksPerChunk)
	assert.Equal(t, 10, cfg.Chains[0].RateLimit)

	assert.Equal(t, uint64(100), cfg.Chains[1].FromBlock)
	assert.Equal(t, uint64(200), cfg.Chains[1].ToBlock)
	assert.Equal(t, uint64(2000), cfg.Chains[1].MaxBlocksPerChunk)
	assert.Equal(t, "algebra", cfg.Chains[1].Flavor)
	assert.Equal(t, 4, cfg.Chains[1].RateLimit)
}

func TestLoadOperationsEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SCRAPER_RETRY_ATTEMPTS", "7")
	flags := operationFlags(t,
		"--rpc", "https://rpc.example",
		"--address", "0x1111111111111111111111111111111111111111",
	)

	cfg, err := LoadOperations("", flags)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.RetryAttempts)
}

func TestLoadOperationsValidation(t *testing.T) {
	_, err := LoadOperations("", operationFlags(t))
	assert.ErrorContains(t, err, "at least one chain")

	_, err = LoadOperations("", operationFlags(t, "--rpc", "https://rpc.example"))
	assert.ErrorContains(t, err, "address list is required")

	_, err = LoadOperations("", operationFlags(t,
		"--rpc", "https://rpc.example",
		"--address", "0x1111111111111111111111111111111111111111",
		"--cache-backend", "postgres",
	))
	assert.ErrorContains(t, err, "pg dsn")

	_, err = LoadOperations("", operationFlags(t,
		"--rpc", "https://rpc.example",
		"--address", "0x1111111111111111111111111111111111111111",
		"--from", "10",
		"--from-time", "1700000000",
	))
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = LoadOperations("", operationFlags(t,
		"--rpc", "https://rpc.example",
		"--address", "0x1111111111111111111111111111111111111111",
		"--from-time", "soon",
	))
	assert.ErrorContains(t, err, "from_time")
}

func TestLoadBlock(t *testing.T) {
	flags := pflag.NewFlagSet("block", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.String("timestamp", "", "")
	flags.String("mode", "before", "")
	flags.String("position", "first", "")
	require.NoError(t, flags.Parse([]string{
		"--rpc", "https://rpc.example",
		"--timestamp", "1700000000",
		"--mode", "after",
		"--position", "last",
	}))

	cfg, err := LoadBlock("", flags)
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000), cfg.Timestamp)
	assert.Equal(t, blocktime.After, cfg.Mode)
	assert.Equal(t, blocktime.Last, cfg.Position)

	require.NoError(t, flags.Set("mode", "sideways"))
	_, err = LoadBlock("", flags)
	assert.Error(t, err)
}
