package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/poiesic/inflow/core"
	"github.com/poiesic/inflow/ingest"
)

// maxLineBytes bounds a single JSONL line. Lines beyond this indicate a
// file that should be a JSON array instead.
const maxLineBytes = 4 << 20

// jsonlStream reads one JSON value per line. Object values become records
// directly; scalar and array values are wrapped under a "value" key.
type jsonlStream struct {
	file      *os.File
	scanner   *bufio.Scanner
	batchSize int
	line      int
	done      bool
}

func newJSONLStream(path string, batchSize int) (ingest.BatchStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening jsonl %s: %w", path, err)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	return &jsonlStream{
		file:      f,
		scanner:   scanner,
		batchSize: batchSize,
	}, nil
}

func (s *jsonlStream) Next(ctx context.Context) ([]core.Record, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		s.close()
		return nil, err
	}

	batch := make([]core.Record, 0, s.batchSize)
	for len(batch) < s.batchSize {
		if !s.scanner.Scan() {
			s.close()
			if err := s.scanner.Err(); err != nil {
				return batch, fmt.Errorf("reading jsonl: %w", err)
			}
			return batch, io.EOF
		}
		s.line++

		text := strings.TrimSpace(s.scanner.Text())
		if text == "" {
			continue
		}

		record, err := decodeRecord([]byte(text))
		if err != nil {
			s.close()
			return batch, fmt.Errorf("parsing jsonl line %d: %w", s.line, err)
		}
		batch = append(batch, record)
	}
	return batch, nil
}

func (s *jsonlStream) close() {
	if !s.done {
		s.done = true
		s.file.Close()
	}
}

// decodeRecord parses one JSON value into a record. Non-object values are
// wrapped so every line yields a usable record.
func decodeRecord(data []byte) (core.Record, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	if obj, ok := value.(map[string]any); ok {
		return core.Record(obj), nil
	}
	return core.Record{"value": value}, nil
}
