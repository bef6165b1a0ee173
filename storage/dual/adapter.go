// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package dual

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/inflow/ai"
	"github.com/poiesic/inflow/core"
	"github.com/poiesic/inflow/storage"
)

// Backend names used in UpsertResult flags and WriteError entries.
const (
	StructuredBackend = "structured"
	VectorBackend     = "vector"
	embeddingStage    = "embedding"
)

// Adapter is a storage.Adapter that writes every batch to two backends: a
// structured document store and a vector store. For each record it requests
// an embedding concurrently through a bounded worker pool, then performs two
// independent upserts. A failure in one backend never aborts the other; the
// outcome is reported as a tagged UpsertResult so callers can distinguish
// fully ingested, partially ingested, and fully failed batches.
//
// Write ordering is fixed: the structured store is always written first,
// then the vector store. Both writes are attempted regardless of the
// other's outcome.
type Adapter struct {
	structured storage.Adapter
	vectors    storage.VectorStore
	embedder   ai.Embedder
	pool       *ants.Pool
	logger     *slog.Logger
}

var _ storage.Adapter = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter) error

// WithPoolSize sets the worker pool size bounding concurrent embedding
// calls. The bound is independent of batch size so large batches cannot
// fan out without limit. Default is runtime.NumCPU().
func WithPoolSize(size int) Option {
	return func(a *Adapter) error {
		if size < 1 {
			size = 1
		}
		if a.pool != nil {
			a.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		a.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// New creates a dual-backend adapter.
func New(structured storage.Adapter, vectors storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Adapter, error) {
	if structured == nil {
		return nil, ErrStructuredStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU()
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		structured: structured,
		vectors:    vectors,
		embedder:   embedder,
		pool:       pool,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(a); optErr != nil {
			a.Release()
			return nil, optErr
		}
	}

	return a, nil
}

// Exists delegates to the structured store, which is the dedup authority.
func (a *Adapter) Exists(ctx context.Context, fp core.Fingerprint) (bool, error) {
	return a.structured.Exists(ctx, fp)
}

// embedOutcome captures one record's embedding call result.
type embedOutcome struct {
	vector []float32
	err    error
}

// UpsertBatch embeds every record concurrently (all-complete join, not
// fail-fast), then upserts the batch to the structured store and the
// successfully embedded representations to the vector store. Per-record
// embedding failures and per-backend upsert failures are collected into the
// result rather than propagated; the returned error is non-nil only when
// both backends rejected the batch.
func (a *Adapter) UpsertBatch(ctx context.Context, records []core.Record) (*storage.UpsertResult, error) {
	if len(records) == 0 {
		return nil, storage.ErrEmptyBatch
	}

	contents := make([]string, len(records))
	for i, record := range records {
		content, err := record.CanonicalJSON()
		if err != nil {
			return nil, fmt.Errorf("serializing record %d: %w", i, err)
		}
		contents[i] = content
	}

	outcomes := a.embedAll(ctx, contents)

	var errs []storage.WriteError
	items := make([]storage.VectorItem, 0, len(records))
	for i, outcome := range outcomes {
		if outcome.err != nil {
			errs = append(errs, storage.WriteError{
				Backend:     embeddingStage,
				RecordIndex: i,
				Message:     outcome.err.Error(),
			})
			continue
		}
		// The fingerprint links this item to its structured counterpart.
		fp, _ := records[i][core.FingerprintField].(string)
		items = append(items, storage.VectorItem{
			ID:          uuid.NewString(),
			Fingerprint: fp,
			Content:     contents[i],
			Vector:      outcome.vector,
		})
	}

	// Structured store first, vector store second. Each backend's failure
	// is recorded and must not abort the sibling write.
	structuredOK := false
	if _, err := a.structured.UpsertBatch(ctx, records); err != nil {
		errs = append(errs, storage.WriteError{
			Backend:     StructuredBackend,
			RecordIndex: -1,
			Message:     err.Error(),
		})
	} else {
		structuredOK = true
	}

	vectorOK := false
	if len(items) > 0 {
		if err := a.vectors.UpsertVectors(ctx, items); err != nil {
			errs = append(errs, storage.WriteError{
				Backend:     VectorBackend,
				RecordIndex: -1,
				Message:     err.Error(),
			})
		} else {
			vectorOK = true
		}
	}

	if !structuredOK && !vectorOK {
		return nil, fmt.Errorf("all backends failed: %w", &TotalFailureError{Errors: errs})
	}

	result := &storage.UpsertResult{
		Status: storage.StatusOK,
		Backends: map[string]bool{
			StructuredBackend: structuredOK,
			VectorBackend:     vectorOK,
		},
		Errors: errs,
	}
	if len(errs) > 0 {
		result.Status = storage.StatusPartial
		a.logger.Warn("partial batch failure",
			"records", len(records),
			"structured_success", structuredOK,
			"vector_success", vectorOK,
			"errors", len(errs))
	}
	return result, nil
}

// embedAll issues one embedding call per content through the bounded pool
// and joins on completion of all of them. One record's failure does not
// cancel its siblings.
func (a *Adapter) embedAll(ctx context.Context, contents []string) []embedOutcome {
	outcomes := make([]embedOutcome, len(contents))

	var wg sync.WaitGroup
	for i := range contents {
		wg.Add(1)
		idx := i
		err := a.pool.Submit(func() {
			defer wg.Done()
			vector, err := a.embedder.EmbedText(ctx, contents[idx])
			outcomes[idx] = embedOutcome{vector: vector, err: err}
		})
		if err != nil {
			outcomes[idx] = embedOutcome{err: err}
			wg.Done()
		}
	}
	wg.Wait()

	return outcomes
}

// EmbedQuery embeds free text with the adapter's embedder and normalizes
// the result to unit length, matching the form stored vectors are kept in.
func (a *Adapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := a.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	return storage.NormalizeVector(vector), nil
}

// Close closes both backends. The first error wins but both are attempted.
func (a *Adapter) Close() error {
	a.Release()
	structuredErr := a.structured.Close()
	vectorErr := a.vectors.Close()
	if structuredErr != nil {
		return structuredErr
	}
	return vectorErr
}

// Release frees the worker pool without closing the backends.
func (a *Adapter) Release() {
	if a.pool != nil {
		a.pool.Release()
	}
}
