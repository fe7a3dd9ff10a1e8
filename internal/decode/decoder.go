package decode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/topics"
)

var (
	// ErrUnknownTopic is returned for logs whose topic0 is not registered.
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrEnrichmentFailed is returned for logs of a contract whose metadata
	// could not be read during this run.
	ErrEnrichmentFailed = errors.New("contract enrichment failed")
)

// ProgressFunc receives decode progress.
type ProgressFunc func(text string, remaining, total int)

// Config configures decoder behavior. PoolState, when set, attaches the live
// pool state to rebalance and fee operations.
type Config struct {
	PoolState PoolStateReader
	Progress  ProgressFunc
}

// Decoder turns raw vault and pool logs into operations.
type Decoder struct {
	cfg    Config
	meta   MetaFetcher
	timer  BlockTimer
	cache  *ContractMetaCache
	args   map[string]abi.Arguments
	logger *zap.Logger
}

// NewDecoder builds a decoder for every registered event schema.
func NewDecoder(cfg Config, meta MetaFetcher, timer BlockTimer, logger *zap.Logger) (*Decoder, error) {
	if meta == nil {
		return nil, errors.New("meta fetcher is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	args := make(map[string]abi.Arguments)
	for _, schema := range topics.All() {
		if _, ok := assemblers[schema.Name]; !ok {
			return nil, fmt.Errorf("no assembler for %s", schema.Name)
		}
		parsed, err := dataArguments(schema.FieldTypes)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", schema.Name, err)
		}
		args[schema.Name] = parsed
	}

	return &Decoder{
		cfg:    cfg,
		meta:   meta,
		timer:  timer,
		cache:  NewContractMetaCache(),
		args:   args,
		logger: logger,
	}, nil
}

// Decode converts one log into its operations. A gamma rebalance yields the
// rebalance and its mirrored fee record.
func (d *Decoder) Decode(ctx context.Context, log model.LogRecord) ([]model.Operation, error) {
	schema, ok := topics.LookupHex(log.Topic0())
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, log.Topic0())
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid contract address: %s", log.Address)
	}
	address := common.HexToAddress(log.Address)

	payloads, err := d.decodePayloads(schema, log)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", schema.Name, err)
	}

	meta, err := d.contractMeta(ctx, address, schema.Family, log.BlockNumber)
	if err != nil {
		return nil, err
	}

	timestamp := log.Timestamp
	if timestamp == 0 && d.timer != nil {
		timestamp, err = d.timer.BlockTimestamp(ctx, log.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("block %d timestamp: %w", log.BlockNumber, err)
		}
	}

	var state *model.PoolSlot0
	if d.cfg.PoolState != nil && (schema.Kind == model.KindRebalance || schema.Kind == model.KindFee) {
		state = d.poolState(ctx, address, log.BlockNumber)
	}

	ops := make([]model.Operation, 0, len(payloads))
	for _, p := range payloads {
		topic := p.topic
		if topic == "" {
			topic = schema.Name
		}
		ops = append(ops, model.Operation{
			ChainID:          log.ChainID,
			Kind:             p.kind,
			Topic:            topic,
			TxHash:           log.TxHash,
			BlockHash:        log.BlockHash,
			BlockNumber:      log.BlockNumber,
			LogIndex:         log.LogIndex,
			Address:          strings.ToLower(log.Address),
			Timestamp:        timestamp,
			Token0:           meta.Token0,
			Token1:           meta.Token1,
			DecimalsToken0:   meta.DecimalsToken0,
			DecimalsToken1:   meta.DecimalsToken1,
			DecimalsContract: meta.DecimalsContract,
			Decoded:          p.data,
			PoolState:        state,
		})
		metrics.OperationsDecoded.WithLabelValues(string(p.kind)).Inc()
	}
	return ops, nil
}

// DecodeAll decodes logs in order and never fails on bad data: undecodable
// logs are dropped, logged and returned as decode errors. Only context
// cancellation aborts the loop.
func (d *Decoder) DecodeAll(ctx context.Context, logs []model.LogRecord) ([]model.Operation, []model.DecodeError, error) {
	var (
		ops     []model.Operation
		dropped []model.DecodeError
	)
	total := len(logs)
	for i, log := range logs {
		if err := ctx.Err(); err != nil {
			return ops, dropped, err
		}

		decoded, err := d.Decode(ctx, log)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ops, dropped, ctxErr
			}
			reason := dropReason(err)
			metrics.LogsDropped.WithLabelValues(reason).Inc()
			if reason == "decode_error" {
				d.logger.Warn("log decode failed",
					zap.Uint64("block", log.BlockNumber),
					zap.String("tx", log.TxHash),
					zap.Uint64("log_index", log.LogIndex),
					zap.Error(err),
				)
			} else {
				d.logger.Debug("log dropped",
					zap.String("reason", reason),
					zap.String("address", log.Address),
					zap.Uint64("block", log.BlockNumber),
				)
			}
			dropped = append(dropped, model.DecodeError{
				ChainID:     log.ChainID,
				BlockNumber: log.BlockNumber,
				TxHash:      log.TxHash,
				LogIndex:    log.LogIndex,
				Address:     log.Address,
				Topic0:      log.Topic0(),
				Reason:      reason,
				Error:       err.Error(),
			})
		} else {
			ops = append(ops, decoded...)
		}

		if d.cfg.Progress != nil {
			d.cfg.Progress(fmt.Sprintf("decoding log %d of block %d", log.LogIndex, log.BlockNumber), total-i-1, total)
		}
	}
	return ops, dropped, nil
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownTopic):
		return "unknown_topic"
	case errors.Is(err, ErrEnrichmentFailed):
		return "enrichment_failed"
	default:
		return "decode_error"
	}
}

func (d *Decoder) decodePayloads(schema topics.Schema, log model.LogRecord) ([]payload, error) {
	if len(log.Topics) != len(schema.IndexedTypes)+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", len(schema.IndexedTypes)+1, len(log.Topics))
	}
	indexed, err := parseTopicHashes(log.Topics[1:])
	if err != nil {
		return nil, err
	}

	data, err := hexutil.Decode(log.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := d.args[schema.Name].Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}

	reader := &fieldReader{topics: indexed, values: values}
	payloads := assemblers[schema.Name](reader)
	if reader.err != nil {
		return nil, reader.err
	}
	return payloads, nil
}

func (d *Decoder) contractMeta(ctx context.Context, address common.Address, family topics.Family, block uint64) (model.ContractMeta, error) {
	if meta, ok := d.cache.Get(address); ok {
		return meta, nil
	}
	if cause := d.cache.Failure(address); cause != nil {
		return model.ContractMeta{}, fmt.Errorf("%w: %s: %v", ErrEnrichmentFailed, address.Hex(), cause)
	}

	meta, err := d.meta.ContractMeta(ctx, address, family, block)
	if err != nil {
		if ctx.Err() != nil {
			return model.ContractMeta{}, err
		}
		if d.cache.MarkFailed(address, err) {
			d.logger.Warn("contract enrichment failed, dropping its logs for this run",
				zap.String("address", strings.ToLower(address.Hex())),
				zap.Error(err),
			)
		}
		return model.ContractMeta{}, fmt.Errorf("%w: %s: %v", ErrEnrichmentFailed, address.Hex(), err)
	}
	d.cache.Set(address, meta)
	return meta, nil
}

func (d *Decoder) poolState(ctx context.Context, address common.Address, block uint64) *model.PoolSlot0 {
	state, err := d.cfg.PoolState.PoolState(ctx, address, block)
	if err != nil {
		d.logger.Debug("pool state read failed",
			zap.String("address", strings.ToLower(address.Hex())),
			zap.Uint64("block", block),
			zap.Error(err),
		)
		return nil
	}
	return &state
}
