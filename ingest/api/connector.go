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


// Package api provides connectors over remote sources (REST pagination,
// GraphQL extraction, WebSocket streaming) and an adapter that turns any
// connector into a batch generator for the ingest engine.
package api

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/inflow/core"
	"github.com/poiesic/inflow/ingest"
)

// Stream yields connector items one at a time. Next returns io.EOF when
// the source is exhausted; a non-EOF error means the source failed in a
// way the connector cannot represent as an error-tagged item. Streams are
// single-pass.
type Stream interface {
	Next(ctx context.Context) (core.ProcessedData, error)
}

// Connector opens a stream of items from a remote source identified by a
// URL.
type Connector interface {
	Open(ctx context.Context, source string) (Stream, error)
}

// DefaultBatchSize is used when no batch size option is given.
const DefaultBatchSize = 50

// Generator adapts a Connector to the ingest.Generator contract, packing
// connector items into record batches. Error-tagged items are logged and
// dropped by default; WithErrorRecords turns them into records instead so
// a caller can persist failure evidence alongside data.
type Generator struct {
	connector     Connector
	batchSize     int
	includeErrors bool
	logger        *slog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithBatchSize sets the number of records per batch.
func WithBatchSize(n int) GeneratorOption {
	return func(g *Generator) {
		g.batchSize = n
	}
}

// WithErrorRecords makes error-tagged connector items yield records
// carrying the error message instead of being dropped.
func WithErrorRecords(enabled bool) GeneratorOption {
	return func(g *Generator) {
		g.includeErrors = enabled
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGenerator wraps a connector as a batch generator.
func NewGenerator(connector Connector, opts ...GeneratorOption) (*Generator, error) {
	if connector == nil {
		return nil, ErrConnectorRequired
	}
	g := &Generator{
		connector: connector,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.batchSize < 1 {
		return nil, core.ErrInvalidBatchSize
	}
	g.logger = g.logger.With("component", "api-generator")
	return g, nil
}

// Batches opens the connector against source and returns a single-pass
// record stream over its items.
func (g *Generator) Batches(ctx context.Context, source string) (ingest.BatchStream, error) {
	stream, err := g.connector.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	return &connectorStream{gen: g, stream: stream}, nil
}

type connectorStream struct {
	gen    *Generator
	stream Stream
	done   bool
}

func (s *connectorStream) Next(ctx context.Context) ([]core.Record, error) {
	if s.done {
		return nil, io.EOF
	}

	batch := make([]core.Record, 0, s.gen.batchSize)
	for len(batch) < s.gen.batchSize {
		item, err := s.stream.Next(ctx)
		if err != nil {
			s.done = true
			if err == io.EOF {
				return batch, io.EOF
			}
			return batch, err
		}

		if item.IsError() {
			if !s.gen.includeErrors {
				s.gen.logger.Warn("dropping error-tagged item",
					"source_url", item.SourceURL, "err", item.Err)
				continue
			}
			batch = append(batch, core.Record{
				"error":       item.Err,
				"source_type": string(item.SourceType),
				"source_url":  item.SourceURL,
			})
			continue
		}
		batch = append(batch, recordFromItem(item))
	}
	return batch, nil
}

// recordFromItem flattens a connector item into the fields the engine
// fingerprints and stores. Pagination coordinates stay out of the record
// so a re-ingest of identical content deduplicates regardless of how the
// source happened to page it.
func recordFromItem(item core.ProcessedData) core.Record {
	return core.Record{
		"content":     item.Content,
		"source_type": string(item.SourceType),
		"source_url":  item.SourceURL,
		"checksum":    string(item.Checksum),
	}
}
