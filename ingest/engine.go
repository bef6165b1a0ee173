package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/poiesic/inflow/core"
	"github.com/poiesic/inflow/storage"
)

// Processor ingests one source. The Engine is the standard implementation;
// sources whose unit of work is not "one record" (zip archives) implement
// it directly.
type Processor interface {
	Ingest(ctx context.Context, source string, opts *Options) (*IngestionResult, error)
}

// Engine drives a Generator's batches through the processing steps: per
// record, validate (drop on false), enrich, fingerprint, skip duplicates,
// then upsert the surviving records as one batch and report progress.
//
// An upsert error propagates to the caller; retry is a backend-adapter
// concern, not the engine's.
type Engine struct {
	gen         Generator
	store       storage.Adapter
	dedupe      bool
	fingerprint core.FingerprintFunc
	maxInFlight int
	logger      *slog.Logger
}

var _ Processor = (*Engine)(nil)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDeduplication toggles fingerprint deduplication. Default is enabled.
func WithDeduplication(enabled bool) EngineOption {
	return func(e *Engine) {
		e.dedupe = enabled
	}
}

// WithFingerprintFunc overrides the default fingerprint function, e.g. for
// partial-key or semantic dedup.
func WithFingerprintFunc(fn core.FingerprintFunc) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.fingerprint = fn
		}
	}
}

// WithMaxConcurrentBatches sets an advisory upper bound on batches in
// flight. Batch progression is currently synchronous, so the value is
// recorded for adapters that schedule their own concurrency but does not
// change engine behavior.
func WithMaxConcurrentBatches(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxInFlight = n
		}
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an ingestion engine for the given generator and store.
func NewEngine(gen Generator, store storage.Adapter, opts ...EngineOption) (*Engine, error) {
	if gen == nil {
		return nil, ErrGeneratorRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	e := &Engine{
		gen:         gen,
		store:       store,
		dedupe:      true,
		fingerprint: core.FingerprintRecord,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Ingest pulls batches from the source until exhaustion. The returned
// result always reflects the work completed so far, even when err is
// non-nil, so a caller can account for records written before a failure.
func (e *Engine) Ingest(ctx context.Context, source string, opts *Options) (*IngestionResult, error) {
	if opts == nil {
		opts = &Options{}
	}

	stream, err := e.gen.Batches(ctx, source)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("starting ingest",
		"source", source, "dedup", e.dedupe, "max_in_flight", e.maxInFlight)

	result := newIngestionResult()
	for {
		batch, err := stream.Next(ctx)
		last := errors.Is(err, io.EOF)
		if err != nil && !last {
			return result, err
		}

		if len(batch) > 0 {
			if err := e.processBatch(ctx, batch, opts, result); err != nil {
				return result, err
			}
		}
		if last {
			break
		}
	}

	e.logger.Info("source ingested", "source", source, "records", result.Count)
	return result, nil
}

// processBatch applies the per-record steps and upserts the survivors.
func (e *Engine) processBatch(ctx context.Context, batch []core.Record, opts *Options, result *IngestionResult) error {
	kept := make([]core.Record, 0, len(batch))
	for _, record := range batch {
		if opts.Validate != nil && !opts.Validate(record) {
			continue
		}
		if opts.Enrich != nil {
			record = opts.Enrich(record)
		}

		fp := e.fingerprint(record)
		if e.dedupe {
			exists, err := e.store.Exists(ctx, fp)
			if err != nil {
				return err
			}
			if exists {
				e.logger.Debug("skipping duplicate record", "fingerprint", fp)
				continue
			}
		}
		record[core.FingerprintField] = string(fp)
		kept = append(kept, record)
	}

	if len(kept) == 0 {
		return nil
	}

	res, err := e.store.UpsertBatch(ctx, kept)
	if err != nil {
		return err
	}
	result.Count += len(kept)
	result.merge(res)

	if opts.Progress != nil {
		opts.Progress(result.Count, len(kept))
	}
	return nil
}
