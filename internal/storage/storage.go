package storage

import (
	"context"

	"vaultScope/internal/model"
)

// Sink receives decoded operations.
type Sink interface {
	PutOperations(ctx context.Context, ops []model.Operation) error
}

// ErrorSink receives logs dropped during decoding.
type ErrorSink interface {
	PutDecodeErrors(ctx context.Context, errs []model.DecodeError) error
}

// MultiSink fans operations out to every sink in order.
type MultiSink []Sink

func (m MultiSink) PutOperations(ctx context.Context, ops []model.Operation) error {
	for _, sink := range m {
		if err := sink.PutOperations(ctx, ops); err != nil {
			return err
		}
	}
	return nil
}
