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


// Package file provides batch generators over flat-file sources. CSV and
// JSONL inputs are read streaming; JSON inputs must hold a top-level array
// and are materialized in full before iteration, which limits them to
// inputs that fit in memory.
package file

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/inflow/core"
	"github.com/poiesic/inflow/ingest"
)

// Format identifies a supported flat-file layout.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
	FormatJSON  Format = "json"
)

// DefaultBatchSize is used when no batch size option is given.
const DefaultBatchSize = 100

// Generator produces record batches from a flat file. It implements
// ingest.Generator; the source string passed to Batches is a file path.
type Generator struct {
	format    Format
	batchSize int
	delimiter rune
	logger    *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithBatchSize sets the number of records per batch. Values below one are
// rejected by NewGenerator.
func WithBatchSize(n int) Option {
	return func(g *Generator) {
		g.batchSize = n
	}
}

// WithDelimiter sets the CSV field delimiter. Ignored for other formats.
func WithDelimiter(d rune) Option {
	return func(g *Generator) {
		g.delimiter = d
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGenerator builds a generator for the given format. Formats this
// package does not read (xml, pdf, xlsx, parquet, avro, anything else)
// fail closed with core.ErrUnsupportedFormat rather than guessing at a
// parse.
func NewGenerator(format Format, opts ...Option) (*Generator, error) {
	switch format {
	case FormatCSV, FormatJSONL, FormatJSON:
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, format)
	}

	g := &Generator{
		format:    format,
		batchSize: DefaultBatchSize,
		delimiter: ',',
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.batchSize < 1 {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidBatchSize, g.batchSize)
	}
	g.logger = g.logger.With("component", "file-generator", "format", string(format))
	return g, nil
}

// Batches opens the file at source and returns a single-pass stream over
// its records.
func (g *Generator) Batches(ctx context.Context, source string) (ingest.BatchStream, error) {
	switch g.format {
	case FormatCSV:
		return newCSVStream(source, g.batchSize, g.delimiter)
	case FormatJSONL:
		return newJSONLStream(source, g.batchSize)
	case FormatJSON:
		return newJSONStream(source, g.batchSize)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, g.format)
	}
}
