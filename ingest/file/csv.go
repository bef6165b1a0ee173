package file

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/poiesic/inflow/core"
	"github.com/poiesic/inflow/ingest"
)

// csvStream reads a CSV file one row at a time. The first row supplies the
// record keys; short rows simply omit the trailing keys.
type csvStream struct {
	file      *os.File
	reader    *csv.Reader
	headers   []string
	batchSize int
	done      bool
}

func newCSVStream(path string, batchSize int, delimiter rune) (ingest.BatchStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv %s: %w", path, err)
	}

	reader := csv.NewReader(f)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("reading csv headers from %s: file is empty", path)
		}
		return nil, fmt.Errorf("reading csv headers from %s: %w", path, err)
	}

	return &csvStream{
		file:      f,
		reader:    reader,
		headers:   headers,
		batchSize: batchSize,
	}, nil
}

func (s *csvStream) Next(ctx context.Context) ([]core.Record, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		s.close()
		return nil, err
	}

	batch := make([]core.Record, 0, s.batchSize)
	for len(batch) < s.batchSize {
		row, err := s.reader.Read()
		if err == io.EOF {
			s.close()
			return batch, io.EOF
		}
		if err != nil {
			s.close()
			return batch, fmt.Errorf("reading csv row: %w", err)
		}

		record := make(core.Record, len(s.headers))
		for i, header := range s.headers {
			if i < len(row) {
				record[header] = row[i]
			}
		}
		batch = append(batch, record)
	}
	return batch, nil
}

func (s *csvStream) close() {
	if !s.done {
		s.done = true
		s.file.Close()
	}
}
