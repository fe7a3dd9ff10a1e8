package blocktime

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"vaultScope/internal/chain"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
)

// ErrInvalidArgument is returned for a non-positive target timestamp.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	defaultDeadline    = 15 * time.Second
	referenceFraction  = 0.85
	defaultSecPerBlock = 1.0
	neighborAttempts   = 3
)

// InexactMode selects the side of the target a block may fall on when no
// block carries the exact timestamp.
type InexactMode int

const (
	// Before returns the closest block with timestamp <= target.
	Before InexactMode = iota
	// After returns the closest block with timestamp >= target.
	After
)

// EqualPosition selects among contiguous blocks sharing the target timestamp.
type EqualPosition int

const (
	First EqualPosition = iota
	Last
)

// BlockSource fetches blocks by number and the chain head.
type BlockSource interface {
	LatestBlock(ctx context.Context) (model.Block, error)
	BlockByNumber(ctx context.Context, number uint64) (model.Block, error)
}

// Config controls resolver behavior.
type Config struct {
	// Deadline bounds the adaptive search before it switches to a linear walk.
	Deadline time.Duration
	// Now is the clock used for the deadline; defaults to time.Now.
	Now func() time.Time
}

// Resolver maps wall-clock timestamps to block numbers.
type Resolver struct {
	source   BlockSource
	deadline time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewResolver builds a Resolver over source.
func NewResolver(cfg Config, source BlockSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = defaultDeadline
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Resolver{
		source:   source,
		deadline: cfg.Deadline,
		now:      cfg.Now,
		logger:   logger,
	}
}

// Resolve returns the block whose timestamp best matches target under mode.
// Among blocks sharing the matched timestamp, pos picks the lowest or highest.
func (r *Resolver) Resolve(ctx context.Context, target int64, mode InexactMode, pos EqualPosition) (uint64, error) {
	if target <= 0 {
		return 0, fmt.Errorf("timestamp %d: %w", target, ErrInvalidArgument)
	}

	latest, err := r.source.LatestBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("latest block: %w", err)
	}
	first, err := r.source.BlockByNumber(ctx, 1)
	if err != nil {
		return 0, fmt.Errorf("block 1: %w", err)
	}
	if target <= int64(first.Timestamp) {
		return 1, nil
	}
	if target > int64(latest.Timestamp) {
		return latest.Number, nil
	}

	s := &search{r: r, ctx: ctx, target: target, latest: latest}
	found, exact, err := s.run()
	if err != nil {
		return 0, err
	}
	if !exact {
		metrics.ResolverFallbacks.Inc()
		found, err = s.walk(found, mode)
		if err != nil {
			return 0, err
		}
	}
	if int64(found.Timestamp) != target {
		return found.Number, nil
	}
	return s.disambiguate(found, pos)
}

type search struct {
	r      *Resolver
	ctx    context.Context
	target int64
	latest model.Block
}

// run performs the adaptive search. exact is false when it gave up, in which
// case the returned block is the last sampled candidate.
func (s *search) run() (model.Block, bool, error) {
	start := s.r.now()
	avg, err := s.initialSecPerBlock()
	if err != nil {
		return model.Block{}, false, err
	}

	current := s.latest
	if int64(current.Timestamp) == s.target {
		return current, true, nil
	}
	step := int64(math.Round(float64(int64(current.Timestamp)-s.target) / avg))
	if step < 1 {
		step = 1
	}
	sign := int64(-1)
	visited := map[uint64]struct{}{current.Number: {}}
	iterations := 0
	defer func() { metrics.ResolverIterations.Observe(float64(iterations)) }()

	for {
		if s.r.now().Sub(start) > s.r.deadline {
			s.r.logger.Warn("block search deadline exceeded, walking linearly",
				zap.Int64("target", s.target), zap.Uint64("candidate", current.Number))
			return current, false, nil
		}
		if err := s.ctx.Err(); err != nil {
			return model.Block{}, false, err
		}

		next := int64(current.Number) + sign*step
		for next <= 0 {
			step /= 2
			if step == 0 {
				step, sign = 1, 1
			}
			next = int64(current.Number) + sign*step
		}

		candidate, err := s.r.source.BlockByNumber(s.ctx, uint64(next))
		if errors.Is(err, chain.ErrBlockNotFound) {
			if step == 1 {
				return current, false, nil
			}
			step /= 2
			continue
		}
		if err != nil {
			return model.Block{}, false, fmt.Errorf("block %d: %w", next, err)
		}
		iterations++

		ts := int64(candidate.Timestamp)
		if ts == s.target {
			return candidate, true, nil
		}
		if _, seen := visited[candidate.Number]; seen {
			return candidate, false, nil
		}
		visited[candidate.Number] = struct{}{}

		if straddles(current, candidate, s.target) {
			return candidate, false, nil
		}

		if dn := absDiff(candidate.Number, current.Number); dn > 0 {
			if dt := absDiff(candidate.Timestamp, current.Timestamp); dt > 0 {
				avg = float64(dt) / float64(dn)
			}
		}
		if ts < s.target {
			sign = 1
		} else {
			sign = -1
		}
		step = int64(math.Round(math.Abs(float64(s.target-ts)) / avg))
		if step < 1 {
			step = 1
		}
		current = candidate
	}
}

// initialSecPerBlock samples a reference block deep in the chain, away from
// the irregular block times near genesis.
func (s *search) initialSecPerBlock() (float64, error) {
	refNumber := uint64(float64(s.latest.Number) * referenceFraction)
	if refNumber < 1 {
		refNumber = 1
	}
	if refNumber >= s.latest.Number {
		return defaultSecPerBlock, nil
	}
	ref, err := s.r.source.BlockByNumber(s.ctx, refNumber)
	if errors.Is(err, chain.ErrBlockNotFound) {
		return defaultSecPerBlock, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reference block %d: %w", refNumber, err)
	}
	dt := absDiff(s.latest.Timestamp, ref.Timestamp)
	if dt == 0 {
		return defaultSecPerBlock, nil
	}
	return float64(dt) / float64(s.latest.Number-ref.Number), nil
}

// walk moves one block at a time from candidate toward the target.
func (s *search) walk(candidate model.Block, mode InexactMode) (model.Block, error) {
	current := candidate
	switch mode {
	case After:
		for int64(current.Timestamp) < s.target {
			next, ok, err := s.neighbor(current, 1)
			if err != nil {
				return model.Block{}, err
			}
			if !ok {
				return current, nil
			}
			current = next
		}
		for {
			prev, ok, err := s.neighbor(current, -1)
			if err != nil {
				return model.Block{}, err
			}
			if !ok || int64(prev.Timestamp) < s.target {
				return current, nil
			}
			current = prev
		}
	default:
		for int64(current.Timestamp) > s.target {
			prev, ok, err := s.neighbor(current, -1)
			if err != nil {
				return model.Block{}, err
			}
			if !ok {
				return current, nil
			}
			current = prev
		}
		for {
			next, ok, err := s.neighbor(current, 1)
			if err != nil {
				return model.Block{}, err
			}
			if !ok || int64(next.Timestamp) > s.target {
				return current, nil
			}
			current = next
		}
	}
}

// disambiguate scans contiguous neighbors sharing found's timestamp.
func (s *search) disambiguate(found model.Block, pos EqualPosition) (uint64, error) {
	dir := int64(-1)
	if pos == Last {
		dir = 1
	}
	current := found
	for {
		next, ok, err := s.neighbor(current, dir)
		if err != nil {
			return 0, err
		}
		if !ok || next.Timestamp != found.Timestamp {
			return current.Number, nil
		}
		current = next
	}
}

// neighbor fetches the block adjacent to b in direction dir. ok is false at
// the chain bounds or when the provider keeps reporting the block missing.
func (s *search) neighbor(b model.Block, dir int64) (model.Block, bool, error) {
	n := int64(b.Number) + dir
	if n < 1 || uint64(n) > s.latest.Number {
		return model.Block{}, false, nil
	}
	for attempt := 0; attempt < neighborAttempts; attempt++ {
		block, err := s.r.source.BlockByNumber(s.ctx, uint64(n))
		if errors.Is(err, chain.ErrBlockNotFound) {
			continue
		}
		if err != nil {
			return model.Block{}, false, fmt.Errorf("block %d: %w", n, err)
		}
		return block, true, nil
	}
	return model.Block{}, false, nil
}

// straddles reports whether a and b are adjacent blocks on opposite sides of
// target, so no block carries target exactly.
func straddles(a, b model.Block, target int64) bool {
	if absDiff(a.Number, b.Number) != 1 {
		return false
	}
	ta, tb := int64(a.Timestamp), int64(b.Timestamp)
	return (ta < target && tb > target) || (ta > target && tb < target)
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

// ParseInexactMode maps "before" or "after" to an InexactMode.
func ParseInexactMode(s string) (InexactMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "before", "":
		return Before, nil
	case "after":
		return After, nil
	default:
		return Before, fmt.Errorf("unknown inexact mode: %s", s)
	}
}

// ParseEqualPosition maps "first" or "last" to an EqualPosition.
func ParseEqualPosition(s string) (EqualPosition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first", "":
		return First, nil
	case "last":
		return Last, nil
	default:
		return First, fmt.Errorf("unknown equal position: %s", s)
	}
}
