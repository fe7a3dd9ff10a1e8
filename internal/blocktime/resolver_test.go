package blocktime

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"vaultScope/internal/chain"
	"vaultScope/internal/model"
)

type fakeChain struct {
	ts       []uint64 // index is the block number; index 0 is unused
	flaky    map[uint64]int
	requests int
}

func (f *fakeChain) LatestBlock(ctx context.Context) (model.Block, error) {
	n := uint64(len(f.ts) - 1)
	return model.Block{Number: n, Timestamp: f.ts[n]}, nil
}

func (f *fakeChain) BlockByNumber(ctx context.Context, number uint64) (model.Block, error) {
	f.requests++
	if number == 0 || number >= uint64(len(f.ts)) {
		return model.Block{}, fmt.Errorf("block %d: %w", number, chain.ErrBlockNotFound)
	}
	if f.flaky[number] > 0 {
		f.flaky[number]--
		return model.Block{}, fmt.Errorf("block %d: %w", number, chain.ErrBlockNotFound)
	}
	return model.Block{Number: number, Timestamp: f.ts[number]}, nil
}

// irregularChain builds a chain with slow genesis-era blocks followed by
// uneven spacing, including runs of equal timestamps.
func irregularChain(n int) *fakeChain {
	ts := make([]uint64, n+1)
	ts[1] = 1_000_000
	seed := uint64(42)
	gaps := []uint64{0, 1, 2, 2, 3, 3, 3, 5, 13}
	for i := 2; i <= n; i++ {
		if i < 100 {
			ts[i] = ts[i-1] + 100
			continue
		}
		seed = seed*6364136223846793005 + 1442695040888963407
		ts[i] = ts[i-1] + gaps[(seed>>33)%uint64(len(gaps))]
	}
	return &fakeChain{ts: ts}
}

func expected(ts []uint64, target uint64, mode InexactMode, pos EqualPosition) uint64 {
	var match uint64
	if mode == Before {
		for n := len(ts) - 1; n >= 1; n-- {
			if ts[n] <= target {
				match = uint64(n)
				break
			}
		}
	} else {
		for n := 1; n < len(ts); n++ {
			if ts[n] >= target {
				match = uint64(n)
				break
			}
		}
	}
	if ts[match] != target {
		return match
	}
	for pos == First && match > 1 && ts[match-1] == target {
		match--
	}
	for pos == Last && int(match) < len(ts)-1 && ts[match+1] == target {
		match++
	}
	return match
}

func TestResolveEqualTimestamps(t *testing.T) {
	ts := make([]uint64, 1001)
	for n := 1; n <= 1000; n++ {
		switch {
		case n < 50:
			ts[n] = 400 + uint64(n)*12
		case n <= 52:
			ts[n] = 1000
		default:
			ts[n] = 1000 + uint64(n-52)*12
		}
	}
	source := &fakeChain{ts: ts}
	resolver := NewResolver(Config{}, source, nil)

	got, err := resolver.Resolve(context.Background(), 1000, Before, First)
	if err != nil {
		t.Fatalf("resolve first: %v", err)
	}
	if got != 50 {
		t.Fatalf("first: got %d want 50", got)
	}

	got, err = resolver.Resolve(context.Background(), 1000, After, Last)
	if err != nil {
		t.Fatalf("resolve last: %v", err)
	}
	if got != 52 {
		t.Fatalf("last: got %d want 52", got)
	}
}

func TestResolveMatchesBruteForce(t *testing.T) {
	source := irregularChain(5000)
	resolver := NewResolver(Config{}, source, nil)
	ctx := context.Background()

	first := source.ts[1]
	last := source.ts[len(source.ts)-1]
	for target := first + 1; target <= last; target += 97 {
		for _, mode := range []InexactMode{Before, After} {
			for _, pos := range []EqualPosition{First, Last} {
				got, err := resolver.Resolve(ctx, int64(target), mode, pos)
				if err != nil {
					t.Fatalf("resolve %d: %v", target, err)
				}
				want := expected(source.ts, target, mode, pos)
				if got != want {
					t.Fatalf("target %d mode %d pos %d: got %d (ts %d) want %d (ts %d)",
						target, mode, pos, got, source.ts[got], want, source.ts[want])
				}
			}
		}
	}
}

func TestResolveDeterministic(t *testing.T) {
	source := irregularChain(3000)
	resolver := NewResolver(Config{}, source, nil)
	target := int64(source.ts[1777] + 1)

	a, err := resolver.Resolve(context.Background(), target, Before, First)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	b, err := resolver.Resolve(context.Background(), target, Before, First)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if a != b {
		t.Fatalf("non-deterministic: %d != %d", a, b)
	}
}

func TestResolveRetriesBlockNotFound(t *testing.T) {
	source := irregularChain(3000)
	source.flaky = make(map[uint64]int)
	for n := uint64(1); n < uint64(len(source.ts)); n += 3 {
		source.flaky[n] = 1
	}
	// block 1 is read before the search starts and must be available
	delete(source.flaky, 1)
	resolver := NewResolver(Config{}, source, nil)

	target := source.ts[2222]
	got, err := resolver.Resolve(context.Background(), int64(target), Before, First)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if source.ts[got] > target {
		t.Fatalf("block %d has ts %d above target %d", got, source.ts[got], target)
	}
}

func TestResolveDeadlineFallsBackToWalk(t *testing.T) {
	source := irregularChain(400)
	clock := time.Unix(0, 0)
	resolver := NewResolver(Config{
		Deadline: 15 * time.Second,
		Now: func() time.Time {
			clock = clock.Add(20 * time.Second)
			return clock
		},
	}, source, nil)

	target := source.ts[150] + 1
	for _, mode := range []InexactMode{Before, After} {
		got, err := resolver.Resolve(context.Background(), int64(target), mode, First)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if want := expected(source.ts, target, mode, First); got != want {
			t.Fatalf("mode %d: got %d want %d", mode, got, want)
		}
	}
}

func TestResolveBounds(t *testing.T) {
	source := irregularChain(500)
	resolver := NewResolver(Config{}, source, nil)
	ctx := context.Background()

	got, err := resolver.Resolve(ctx, int64(source.ts[1]), After, Last)
	if err != nil || got != 1 {
		t.Fatalf("genesis: got %d err %v", got, err)
	}

	got, err = resolver.Resolve(ctx, int64(source.ts[500])+1000, Before, First)
	if err != nil || got != 500 {
		t.Fatalf("future: got %d err %v", got, err)
	}
}

func TestResolveInvalidTimestamp(t *testing.T) {
	resolver := NewResolver(Config{}, irregularChain(10), nil)
	for _, ts := range []int64{0, -5} {
		_, err := resolver.Resolve(context.Background(), ts, Before, First)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("ts %d: expected ErrInvalidArgument, got %v", ts, err)
		}
	}
}

func TestResolvePropagatesProviderError(t *testing.T) {
	boom := errors.New("connection reset by peer")
	resolver := NewResolver(Config{}, failingSource{err: boom}, nil)
	_, err := resolver.Resolve(context.Background(), 100, Before, First)
	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

type failingSource struct {
	err error
}

func (f failingSource) LatestBlock(ctx context.Context) (model.Block, error) {
	return model.Block{}, f.err
}

func (f failingSource) BlockByNumber(ctx context.Context, number uint64) (model.Block, error) {
	return model.Block{}, f.err
}

func TestParseModes(t *testing.T) {
	mode, err := ParseInexactMode("After")
	if err != nil || mode != After {
		t.Fatalf("expected After, got %v (%v)", mode, err)
	}
	if _, err := ParseInexactMode("nearest"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	pos, err := ParseEqualPosition("last")
	if err != nil || pos != Last {
		t.Fatalf("expected Last, got %v (%v)", pos, err)
	}
	if _, err := ParseEqualPosition("middle"); err == nil {
		t.Fatalf("expected error for unknown position")
	}
}
