package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"vaultScope/internal/blocktime"
)

// BlockConfig holds configuration for the block command.
type BlockConfig struct {
	RPCURL           string
	Timestamp        uint64
	Mode             blocktime.InexactMode
	Position         blocktime.EqualPosition
	RateLimit        int
	RetryAttempts    int
	RetryDelay       time.Duration
	ResolverDeadline time.Duration
	LogLevel         string
}

// LoadBlock merges config file, environment variables, and flags into BlockConfig.
func LoadBlock(cfgFile string, flags *pflag.FlagSet) (BlockConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"mode":              "before",
		"position":          "first",
		"rate-limit":        10,
		"retry-attempts":    3,
		"retry-delay":       2 * time.Second,
		"resolver-deadline": 15 * time.Second,
		"log-level":         "info",
	})
	if err != nil {
		return BlockConfig{}, err
	}

	ts, err := ParseTimestamp(v.GetString("timestamp"))
	if err != nil {
		return BlockConfig{}, fmt.Errorf("timestamp: %w", err)
	}
	mode, err := blocktime.ParseInexactMode(v.GetString("mode"))
	if err != nil {
		return BlockConfig{}, err
	}
	pos, err := blocktime.ParseEqualPosition(v.GetString("position"))
	if err != nil {
		return BlockConfig{}, err
	}

	cfg := BlockConfig{
		RPCURL:           v.GetString("rpc"),
		Timestamp:        ts,
		Mode:             mode,
		Position:         pos,
		RateLimit:        v.GetInt("rate-limit"),
		RetryAttempts:    v.GetInt("retry-attempts"),
		RetryDelay:       v.GetDuration("retry-delay"),
		ResolverDeadline: v.GetDuration("resolver-deadline"),
		LogLevel:         v.GetString("log-level"),
	}
	if cfg.RPCURL == "" {
		return BlockConfig{}, fmt.Errorf("rpc url is required")
	}
	if cfg.Timestamp == 0 {
		return BlockConfig{}, fmt.Errorf("timestamp is required")
	}
	return cfg, nil
}
