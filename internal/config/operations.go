package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Property cache backends.
const (
	CacheFile     = "file"
	CachePostgres = "postgres"
	CacheRedis    = "redis"
	CacheNone     = "none"
)

// ChainConfig describes one chain to scrape. A chains list in the config file
// takes precedence over the single-chain flags.
type ChainConfig struct {
	Name              string   `mapstructure:"name"`
	RPCURL            string   `mapstructure:"rpc_url"`
	Addresses         []string `mapstructure:"addresses"`
	Families          []string `mapstructure:"families"`
	Topics            []string `mapstructure:"topics"`
	FromBlock         uint64   `mapstructure:"from_block"`
	ToBlock           uint64   `mapstructure:"to_block"`
	FromTime          string   `mapstructure:"from_time"`
	ToTime            string   `mapstructure:"to_time"`
	MaxBlocksPerChunk uint64   `mapstructure:"max_blocks_per_chunk"`
	RateLimit         int      `mapstructure:"rate_limit"`
	Flavor            string   `mapstructure:"flavor"`
	IncludeLiveMeta   bool     `mapstructure:"include_live_meta"`

	// FromTimestamp and ToTimestamp are FromTime and ToTime parsed.
	FromTimestamp uint64 `mapstructure:"-"`
	ToTimestamp   uint64 `mapstructure:"-"`
}

// CacheConfig selects the property cache backend.
type CacheConfig struct {
	Backend  string
	Dir      string
	PGDSN    string
	RedisURL string
	Reset    bool
}

// OperationsConfig holds configuration for the operations command.
type OperationsConfig struct {
	Chains           []ChainConfig
	OutDir           string
	JSONL            string
	Errors           string
	PGDSN            string
	PGOperations     bool
	Cache            CacheConfig
	Workers          int
	RetryAttempts    int
	RetryDelay       time.Duration
	ResolverDeadline time.Duration
	LogLevel         string
	MetricsAddr      string
}

// LoadOperations merges config file, environment variables, and flags into
// OperationsConfig and validates the result.
func LoadOperations(cfgFile string, flags *pflag.FlagSet) (OperationsConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"network":              "mainnet",
		"max-blocks-per-chunk": uint64(2000),
		"rate-limit":           10,
		"flavor":               "classic",
		"out-dir":              "./data",
		"cache-backend":        CacheFile,
		"cache-dir":            "./data/cache",
		"workers":              5,
		"retry-attempts":       3,
		"retry-delay":          2 * time.Second,
		"resolver-deadline":    15 * time.Second,
		"log-level":            "info",
	})
	if err != nil {
		return OperationsConfig{}, err
	}

	var chains []ChainConfig
	if v.IsSet("chains") {
		if err := v.UnmarshalKey("chains", &chains); err != nil {
			return OperationsConfig{}, fmt.Errorf("decode chains: %w", err)
		}
	}
	if len(chains) == 0 && v.GetString("rpc") != "" {
		chains = []ChainConfig{{
			Name:              v.GetString("network"),
			RPCURL:            v.GetString("rpc"),
			Addresses:         getStringSlice(v, "address"),
			Families:          getStringSlice(v, "family"),
			Topics:            getStringSlice(v, "topic"),
			FromBlock:         v.GetUint64("from"),
			ToBlock:           v.GetUint64("to"),
			FromTime:          v.GetString("from-time"),
			ToTime:            v.GetString("to-time"),
			MaxBlocksPerChunk: v.GetUint64("max-blocks-per-chunk"),
			RateLimit:         v.GetInt("rate-limit"),
			Flavor:            v.GetString("flavor"),
			IncludeLiveMeta:   v.GetBool("include-live-meta"),
		}}
	}

	cfg := OperationsConfig{
		Chains:       chains,
		OutDir:       v.GetString("out-dir"),
		JSONL:        v.GetString("jsonl"),
		Errors:       v.GetString("errors"),
		PGDSN:        v.GetString("pg-dsn"),
		PGOperations: v.GetBool("pg-operations"),
		Cache: CacheConfig{
			Backend:  strings.ToLower(strings.TrimSpace(v.GetString("cache-backend"))),
			Dir:      v.GetString("cache-dir"),
			PGDSN:    v.GetString("pg-dsn"),
			RedisURL: v.GetString("redis-url"),
			Reset:    v.GetBool("cache-reset"),
		},
		Workers:          v.GetInt("workers"),
		RetryAttempts:    v.GetInt("retry-attempts"),
		RetryDelay:       v.GetDuration("retry-delay"),
		ResolverDeadline: v.GetDuration("resolver-deadline"),
		LogLevel:         v.GetString("log-level"),
		MetricsAddr:      v.GetString("metrics-addr"),
	}

	for i := range cfg.Chains {
		if err := normalizeChain(&cfg.Chains[i], v.GetUint64("max-blocks-per-chunk"), v.GetInt("rate-limit")); err != nil {
			return OperationsConfig{}, fmt.Errorf("chain %d: %w", i, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return OperationsConfig{}, err
	}
	return cfg, nil
}

func normalizeChain(c *ChainConfig, chunk uint64, rateLimit int) error {
	c.Name = strings.TrimSpace(c.Name)
	c.RPCURL = strings.TrimSpace(c.RPCURL)
	c.Addresses = cleanStrings(c.Addresses)
	c.Families = cleanStrings(c.Families)
	c.Topics = cleanStrings(c.Topics)
	c.Flavor = strings.ToLower(strings.TrimSpace(c.Flavor))
	if c.MaxBlocksPerChunk == 0 {
		c.MaxBlocksPerChunk = chunk
	}
	if c.RateLimit == 0 {
		c.RateLimit = rateLimit
	}

	var err error
	if c.FromTimestamp, err = ParseTimestamp(c.FromTime); err != nil {
		return fmt.Errorf("from_time: %w", err)
	}
	if c.ToTimestamp, err = ParseTimestamp(c.ToTime); err != nil {
		return fmt.Errorf("to_time: %w", err)
	}
	return nil
}

// Validate checks the chain list and the cache backend settings.
func (c OperationsConfig) Validate() error {
	if len(c.Chains) == 0 {
		return fmt.Errorf("at least one chain is required (set --rpc or a chains list)")
	}
	seen := make(map[string]struct{}, len(c.Chains))
	for i, chain := range c.Chains {
		if chain.Name == "" {
			return fmt.Errorf("chain %d: name is required", i)
		}
		if _, ok := seen[strings.ToLower(chain.Name)]; ok {
			return fmt.Errorf("chain %s: duplicate name", chain.Name)
		}
		seen[strings.ToLower(chain.Name)] = struct{}{}
		if chain.RPCURL == "" {
			return fmt.Errorf("chain %s: rpc url is required", chain.Name)
		}
		if len(chain.Addresses) == 0 {
			return fmt.Errorf("chain %s: address list is required", chain.Name)
		}
		if chain.FromBlock > 0 && chain.FromTimestamp > 0 {
			return fmt.Errorf("chain %s: from block and from time are mutually exclusive", chain.Name)
		}
		if chain.ToBlock > 0 && chain.ToTimestamp > 0 {
			return fmt.Errorf("chain %s: to block and to time are mutually exclusive", chain.Name)
		}
		if chain.ToBlock > 0 && chain.FromBlock > chain.ToBlock {
			return fmt.Errorf("chain %s: from block %d is after to block %d", chain.Name, chain.FromBlock, chain.ToBlock)
		}
		if chain.ToTimestamp > 0 && chain.FromTimestamp > chain.ToTimestamp {
			return fmt.Errorf("chain %s: from time is after to time", chain.Name)
		}
		if chain.MaxBlocksPerChunk == 0 {
			return fmt.Errorf("chain %s: max blocks per chunk must be positive", chain.Name)
		}
	}

	switch c.Cache.Backend {
	case CacheFile:
		if c.Cache.Dir == "" {
			return fmt.Errorf("cache dir is required for the file backend")
		}
	case CachePostgres:
		if c.Cache.PGDSN == "" {
			return fmt.Errorf("pg dsn is required for the postgres cache backend")
		}
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis url is required for the redis cache backend")
		}
	case CacheNone:
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}

	if c.PGOperations && c.PGDSN == "" {
		return fmt.Errorf("pg dsn is required to store operations in postgres")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}
