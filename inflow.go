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


package inflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/inflow/ai"
	"github.com/poiesic/inflow/ai/openai"
	"github.com/poiesic/inflow/config"
	"github.com/poiesic/inflow/ingest"
	"github.com/poiesic/inflow/ingest/api"
	"github.com/poiesic/inflow/ingest/archive"
	"github.com/poiesic/inflow/ingest/file"
	"github.com/poiesic/inflow/storage"
	badgerstore "github.com/poiesic/inflow/storage/badger"
	"github.com/poiesic/inflow/storage/dual"
)

// Framework assembles the full ingestion stack: a badger backend, the
// storage adapter (document-only or dual with embeddings), and a pipeline
// with the file and archive processors pre-registered. API sources are
// added per connector with RegisterConnector.
type Framework struct {
	backend  *badgerstore.Backend
	docs     *badgerstore.DocumentStore
	vectors  *badgerstore.VectorStore
	store    storage.Adapter
	dual     *dual.Adapter
	pipeline *ingest.Pipeline
	cfg      config.Config
	logger   *slog.Logger
}

// Option configures a Framework.
type Option func(*frameworkOptions)

type frameworkOptions struct {
	cfg      config.Config
	embedder ai.Embedder
	logger   *slog.Logger
}

// WithConfig replaces the default configuration.
func WithConfig(cfg config.Config) Option {
	return func(o *frameworkOptions) {
		o.cfg = cfg
	}
}

// WithEmbedder supplies the embedder used in dual mode, overriding the
// OpenAI-compatible client built from the embedding config.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *frameworkOptions) {
		o.embedder = embedder
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *frameworkOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New opens the storage backend and wires the pipeline.
func New(opts ...Option) (*Framework, error) {
	options := &frameworkOptions{
		cfg:    config.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	cfg := options.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := badgerstore.OpenBackend(cfg.Storage.Path, cfg.Storage.InMemory)
	if err != nil {
		return nil, err
	}

	docs, err := badgerstore.NewDocumentStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	vectors, err := badgerstore.NewVectorStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	f := &Framework{
		backend: backend,
		docs:    docs,
		vectors: vectors,
		store:   docs,
		cfg:     cfg,
		logger:  options.logger,
	}

	if cfg.Storage.Dual {
		embedder := options.embedder
		if embedder == nil {
			embedder, err = openai.NewEmbedder(ai.NewConfig(
				ai.WithHost(cfg.Embedding.Host),
				ai.WithModel(cfg.Embedding.Model),
			))
			if err != nil {
				backend.Close()
				return nil, err
			}
		}
		f.dual, err = dual.New(docs, vectors, embedder, dual.WithLogger(f.logger))
		if err != nil {
			backend.Close()
			return nil, err
		}
		f.store = f.dual
	}

	if err := f.buildPipeline(); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (f *Framework) buildPipeline() error {
	f.pipeline = ingest.NewPipeline(ingest.WithPipelineLogger(f.logger))

	for _, format := range []file.Format{file.FormatCSV, file.FormatJSONL, file.FormatJSON} {
		gen, err := file.NewGenerator(format,
			file.WithBatchSize(f.cfg.Pipeline.BatchSize),
			file.WithLogger(f.logger))
		if err != nil {
			return err
		}
		proc, err := f.newEngine(gen)
		if err != nil {
			return err
		}
		f.pipeline.RegisterProcessor(string(format), proc)
	}

	zip, err := archive.NewZipProcessor(f.store, archive.WithLogger(f.logger))
	if err != nil {
		return err
	}
	f.pipeline.RegisterProcessor("zip", zip)
	return nil
}

func (f *Framework) newEngine(gen ingest.Generator) (*ingest.Engine, error) {
	return ingest.NewEngine(gen, f.store,
		ingest.WithDeduplication(f.cfg.Pipeline.Deduplication),
		ingest.WithMaxConcurrentBatches(f.cfg.Pipeline.MaxConcurrentBatches),
		ingest.WithLogger(f.logger))
}

// RegisterConnector mounts an API connector on the pipeline under
// sourceType, batching its items through the engine.
func (f *Framework) RegisterConnector(sourceType string, connector api.Connector) error {
	gen, err := api.NewGenerator(connector,
		api.WithBatchSize(f.cfg.Pipeline.BatchSize),
		api.WithLogger(f.logger))
	if err != nil {
		return err
	}
	proc, err := f.newEngine(gen)
	if err != nil {
		return err
	}
	f.pipeline.RegisterProcessor(sourceType, proc)
	return nil
}

// Ingest routes one source through the pipeline.
func (f *Framework) Ingest(ctx context.Context, sourceType, source string, opts *ingest.Options) (*ingest.IngestionResult, error) {
	return f.pipeline.Ingest(ctx, sourceType, source, opts)
}

// Pipeline exposes the orchestrator for hook registration.
func (f *Framework) Pipeline() *ingest.Pipeline {
	return f.pipeline
}

// Store exposes the active storage adapter.
func (f *Framework) Store() storage.Adapter {
	return f.store
}

// Search embeds the query text and returns stored items ranked by
// similarity. Only available in dual mode.
func (f *Framework) Search(ctx context.Context, query string, minSimilarity float32, limit int) ([]*storage.SimilarityMatch, error) {
	if f.dual == nil {
		return nil, fmt.Errorf("search requires dual storage mode")
	}
	vector, err := f.dual.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return f.vectors.FindSimilar(ctx, vector, minSimilarity, limit)
}

// Close releases the pipeline's resources. Safe to call after a failed
// New.
func (f *Framework) Close() error {
	if f.dual != nil {
		f.dual.Release()
	}
	if err := f.backend.Close(); err != nil {
		f.logger.Error("error closing storage backend", "err", err)
		return err
	}
	return nil
}
