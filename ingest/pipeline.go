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


package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Pipeline routes a source-type key to its registered Processor and injects
// the shared enrichment, validation, progress and error hooks. It performs
// no business logic of its own beyond this routing; processors and hooks
// are replaceable at runtime.
type Pipeline struct {
	mu         sync.RWMutex
	processors map[string]Processor
	validate   ValidateFunc
	enrich     EnrichFunc
	progress   ProgressFunc
	errHandler ErrorHandler
	logger     *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets a custom logger. Default is slog.Default().
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates an empty pipeline; processors are added with
// RegisterProcessor.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		processors: make(map[string]Processor),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterProcessor binds a processor to a source-type key, replacing any
// previous registration.
func (p *Pipeline) RegisterProcessor(sourceType string, proc Processor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processors[sourceType] = proc
}

// SetValidation sets the shared validation hook.
func (p *Pipeline) SetValidation(fn ValidateFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.validate = fn
}

// SetEnrichment sets the shared enrichment hook.
func (p *Pipeline) SetEnrichment(fn EnrichFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enrich = fn
}

// SetProgress sets the shared progress hook.
func (p *Pipeline) SetProgress(fn ProgressFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = fn
}

// SetErrorHandler sets the handler invoked when a processor fails. With a
// handler registered, Ingest reports the failure through it and returns a
// nil error alongside the partial result.
func (p *Pipeline) SetErrorHandler(fn ErrorHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errHandler = fn
}

// Ingest routes the source to the processor registered for sourceType.
// Per-call hooks in opts take precedence over the pipeline's shared hooks.
func (p *Pipeline) Ingest(ctx context.Context, sourceType, source string, opts *Options) (*IngestionResult, error) {
	p.mu.RLock()
	proc, ok := p.processors[sourceType]
	merged := p.mergedOptions(opts)
	errHandler := p.errHandler
	p.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSourceType, sourceType)
	}

	result, err := proc.Ingest(ctx, source, merged)
	if err != nil {
		if errHandler != nil {
			p.logger.Error("ingest failed, routing to error handler",
				"source_type", sourceType, "source", source, "err", err)
			errHandler(err, ErrorContext{SourceType: sourceType, Source: source})
			return result, nil
		}
		return result, err
	}
	return result, nil
}

// mergedOptions overlays per-call hooks on the pipeline defaults.
// Caller must hold at least the read lock.
func (p *Pipeline) mergedOptions(opts *Options) *Options {
	merged := &Options{
		Validate: p.validate,
		Enrich:   p.enrich,
		Progress: p.progress,
	}
	if opts != nil {
		if opts.Validate != nil {
			merged.Validate = opts.Validate
		}
		if opts.Enrich != nil {
			merged.Enrich = opts.Enrich
		}
		if opts.Progress != nil {
			merged.Progress = opts.Progress
		}
	}
	return merged
}
