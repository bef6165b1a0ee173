package storage

import (
	"context"

	"github.com/poiesic/inflow/core"
)

// Adapter is a pluggable storage sink for ingested records.
// Implementations must be idempotent under repeated UpsertBatch of the same
// fingerprinted record.
type Adapter interface {
	// Exists reports whether a record with the given fingerprint has
	// already been stored.
	Exists(ctx context.Context, fp core.Fingerprint) (bool, error)

	// UpsertBatch writes a batch of records. A batch is the unit of
	// atomicity for a storage call: it is invoked at most once per
	// assembled batch, and partial failures are reported in the result,
	// not silently retried. Records carry their fingerprint under
	// core.FingerprintField. A non-nil error means the batch failed
	// entirely; the result is nil in that case.
	UpsertBatch(ctx context.Context, records []core.Record) (*UpsertResult, error)

	// Close releases backend resources.
	Close() error
}

// VectorStore is the vector-side sink used by the dual-backend adapter.
// Implementations must be safe for concurrent use.
type VectorStore interface {
	// UpsertVectors writes embedded representations. Idempotent per
	// fingerprint.
	UpsertVectors(ctx context.Context, items []VectorItem) error

	// Close releases backend resources.
	Close() error
}
