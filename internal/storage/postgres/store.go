package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vaultScope/internal/cache"
	"vaultScope/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS property_cache (
	chain_id   BIGINT NOT NULL,
	address    TEXT NOT NULL,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, address)
);

CREATE TABLE IF NOT EXISTS operations (
	chain_id          BIGINT NOT NULL,
	tx_hash           TEXT NOT NULL,
	log_index         BIGINT NOT NULL,
	kind              TEXT NOT NULL,
	topic             TEXT NOT NULL,
	block_number      BIGINT NOT NULL,
	block_hash        TEXT NOT NULL,
	address           TEXT NOT NULL,
	block_timestamp   BIGINT NOT NULL,
	token0            TEXT NOT NULL,
	token1            TEXT NOT NULL,
	decimals_token0   SMALLINT NOT NULL,
	decimals_token1   SMALLINT NOT NULL,
	decimals_contract SMALLINT NOT NULL,
	decoded           JSONB NOT NULL,
	pool_state        JSONB,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, tx_hash, log_index, kind)
);

CREATE INDEX IF NOT EXISTS operations_address_block_idx ON operations (chain_id, address, block_number);
`

// Store provides Postgres persistence for operations and property caches.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables the store writes to.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutOperations upserts operations keyed by chain, tx, log index and kind.
func (s *Store) PutOperations(ctx context.Context, ops []model.Operation) error {
	if len(ops) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, op := range ops {
		args, err := operationArgs(op)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO operations (
				chain_id, tx_hash, log_index, kind, topic, block_number, block_hash, address,
				block_timestamp, token0, token1, decimals_token0, decimals_token1, decimals_contract,
				decoded, pool_state, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,now(),now())
			ON CONFLICT (chain_id, tx_hash, log_index, kind)
			DO UPDATE SET
				topic = EXCLUDED.topic,
				block_number = EXCLUDED.block_number,
				block_hash = EXCLUDED.block_hash,
				block_timestamp = EXCLUDED.block_timestamp,
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				decimals_token0 = EXCLUDED.decimals_token0,
				decimals_token1 = EXCLUDED.decimals_token1,
				decimals_contract = EXCLUDED.decimals_contract,
				decoded = EXCLUDED.decoded,
				pool_state = EXCLUDED.pool_state,
				updated_at = now()
		`, args...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range ops {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func operationArgs(op model.Operation) ([]interface{}, error) {
	decoded, err := json.Marshal(op.Decoded)
	if err != nil {
		return nil, fmt.Errorf("marshal decoded %s: %w", op.TxHash, err)
	}
	var poolState []byte
	if op.PoolState != nil {
		if poolState, err = json.Marshal(op.PoolState); err != nil {
			return nil, fmt.Errorf("marshal pool state %s: %w", op.TxHash, err)
		}
	}
	return []interface{}{
		int64(op.ChainID),
		strings.ToLower(op.TxHash),
		int64(op.LogIndex),
		string(op.Kind),
		op.Topic,
		int64(op.BlockNumber),
		op.BlockHash,
		strings.ToLower(op.Address),
		int64(op.Timestamp),
		op.Token0,
		op.Token1,
		int16(op.DecimalsToken0),
		int16(op.DecimalsToken1),
		int16(op.DecimalsContract),
		decoded,
		poolState,
	}, nil
}

// CacheStoreFactory opens one property_cache row per (chain, address).
func (s *Store) CacheStoreFactory() cache.StoreFactory {
	return func(chainID uint64, address string) (cache.Store, error) {
		return &CacheStore{pool: s.pool, chainID: chainID, address: strings.ToLower(address)}, nil
	}
}

// CacheStore keeps a property cache document in a jsonb row.
type CacheStore struct {
	pool    *pgxpool.Pool
	chainID uint64
	address string
}

func (c *CacheStore) Load(ctx context.Context) (cache.Document, error) {
	var raw []byte
	row := c.pool.QueryRow(ctx, `SELECT document FROM property_cache WHERE chain_id=$1 AND address=$2`, int64(c.chainID), c.address)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cache.Document{}, nil
		}
		return nil, err
	}
	var doc cache.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse cache document: %w", err)
	}
	return doc, nil
}

func (c *CacheStore) Save(ctx context.Context, doc cache.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal cache document: %w", err)
	}
	_, err = c.pool.Exec(ctx, `
		INSERT INTO property_cache (chain_id, address, document, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (chain_id, address) DO UPDATE
		SET document = EXCLUDED.document, updated_at = now()
	`, int64(c.chainID), c.address, raw)
	return err
}

func (c *CacheStore) Reset(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, `DELETE FROM property_cache WHERE chain_id=$1 AND address=$2`, int64(c.chainID), c.address)
	return err
}
