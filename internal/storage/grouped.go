package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"vaultScope/internal/model"
)

// Grouped is the downstream document shape:
// {contractAddress: {operationKindPlural: [operation, ...]}}.
type Grouped map[string]map[string][]model.Operation

// Group buckets operations by lower-cased contract address and plural kind,
// each bucket ordered by block and log index.
func Group(ops []model.Operation) Grouped {
	out := make(Grouped)
	for _, op := range ops {
		address := strings.ToLower(op.Address)
		kinds, ok := out[address]
		if !ok {
			kinds = make(map[string][]model.Operation)
			out[address] = kinds
		}
		plural := op.Kind.Plural()
		kinds[plural] = append(kinds[plural], op)
	}
	for _, kinds := range out {
		for _, bucket := range kinds {
			sort.SliceStable(bucket, func(i, j int) bool {
				if bucket[i].BlockNumber != bucket[j].BlockNumber {
					return bucket[i].BlockNumber < bucket[j].BlockNumber
				}
				return bucket[i].LogIndex < bucket[j].LogIndex
			})
		}
	}
	return out
}

// GroupedFile buffers operations and writes them as one grouped document.
type GroupedFile struct {
	path string

	mu  sync.Mutex
	ops []model.Operation
}

// OperationsPath returns <dir>/<network>_operations.json.
func OperationsPath(dir, network string) string {
	return filepath.Join(dir, strings.ToLower(network)+"_operations.json")
}

func NewGroupedFile(path string) *GroupedFile {
	return &GroupedFile{path: path}
}

func (g *GroupedFile) PutOperations(_ context.Context, ops []model.Operation) error {
	g.mu.Lock()
	g.ops = append(g.ops, ops...)
	g.mu.Unlock()
	return nil
}

// Flush writes the document, replacing any previous file.
func (g *GroupedFile) Flush() error {
	g.mu.Lock()
	doc := Group(g.ops)
	g.mu.Unlock()

	dir := filepath.Dir(g.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal operations: %w", err)
	}

	tmpPath := g.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write operations tmp: %w", err)
	}
	if err := os.Rename(tmpPath, g.path); err != nil {
		return fmt.Errorf("rename operations: %w", err)
	}
	return nil
}
