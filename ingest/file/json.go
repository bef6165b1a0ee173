package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/poiesic/inflow/core"
	"github.com/poiesic/inflow/ingest"
)

// jsonStream iterates a top-level JSON array. The whole array is decoded
// up front, so unlike the CSV and JSONL streams this one holds the full
// input in memory. Acceptable for configuration-sized files; use JSONL for
// anything large.
type jsonStream struct {
	values    []any
	batchSize int
	pos       int
}

func newJSONStream(path string, batchSize int) (ingest.BatchStream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening json %s: %w", path, err)
	}

	var values []any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing json %s: expected a top-level array: %w", path, err)
	}

	return &jsonStream{values: values, batchSize: batchSize}, nil
}

func (s *jsonStream) Next(ctx context.Context) ([]core.Record, error) {
	if s.pos >= len(s.values) {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := s.pos + s.batchSize
	if end > len(s.values) {
		end = len(s.values)
	}

	batch := make([]core.Record, 0, end-s.pos)
	for _, value := range s.values[s.pos:end] {
		if obj, ok := value.(map[string]any); ok {
			batch = append(batch, core.Record(obj))
		} else {
			batch = append(batch, core.Record{"value": value})
		}
	}
	s.pos = end

	if s.pos >= len(s.values) {
		return batch, io.EOF
	}
	return batch, nil
}
