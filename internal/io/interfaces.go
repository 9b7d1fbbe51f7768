package io

import (
	"context"

	"etl-template/internal/dataset"
)

// InputReader extracts one batch from a source.
type InputReader interface {
	// Extract reads the whole source. An empty source yields an empty,
	// non-nil Dataset.
	Extract(ctx context.Context) (*dataset.Dataset, error)
}

// OutputWriter persists a Dataset to a destination.
type OutputWriter interface {
	// Load writes ds, replacing whatever the destination held. An empty
	// Dataset is a no-op.
	Load(ctx context.Context, ds *dataset.Dataset) error

	// Close releases resources held by the writer. Implementations are
	// idempotent. The shared database connection is not closed here.
	Close() error
}
