package ingest

import (
	"context"

	"github.com/poiesic/inflow/core"
)

// BatchStream is a lazy, finite, single-pass sequence of record batches.
// Next returns io.EOF when the source is exhausted; any batch returned
// alongside io.EOF is a final partial batch and must still be processed.
// Streams are not restartable: once exhausted, Next keeps returning io.EOF.
// A caller that wants early cancellation simply stops pulling.
type BatchStream interface {
	Next(ctx context.Context) ([]core.Record, error)
}

// StreamFunc adapts a function to the BatchStream interface.
type StreamFunc func(ctx context.Context) ([]core.Record, error)

// Next implements BatchStream.
func (f StreamFunc) Next(ctx context.Context) ([]core.Record, error) {
	return f(ctx)
}

// Generator produces the batch stream for a source. This is the only method
// a source-format implementation must provide; the Engine supplies
// everything else.
type Generator interface {
	Batches(ctx context.Context, source string) (BatchStream, error)
}
