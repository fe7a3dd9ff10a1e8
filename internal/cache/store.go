package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Document is the persisted cache shape:
// {chainId: {address: {block: {property: value}}}}.
type Document map[string]map[string]map[string]map[string]json.RawMessage

// Store persists a cache document wholesale.
type Store interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
	Reset(ctx context.Context) error
}

// StoreFactory opens the store of one (chain, address) pair.
type StoreFactory func(chainID uint64, address string) (Store, error)

// FileStore keeps the document in a JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// FileStoreFactory lays files out as <dir>/<chainID>/<address>.json.
func FileStoreFactory(dir string) StoreFactory {
	return func(chainID uint64, address string) (Store, error) {
		if dir == "" {
			return nil, fmt.Errorf("cache dir is empty")
		}
		path := filepath.Join(dir, strconv.FormatUint(chainID, 10), normalize(address)+".json")
		return NewFileStore(path), nil
	}
}

func (s *FileStore) Load(_ context.Context) (Document, error) {
	stat, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, nil
		}
		return nil, fmt.Errorf("stat cache file: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("cache path is a directory")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return Document{}, nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse cache file: %w", err)
	}
	return doc, nil
}

func (s *FileStore) Save(_ context.Context, doc Document) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write cache tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename cache: %w", err)
	}
	return nil
}

func (s *FileStore) Reset(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}
