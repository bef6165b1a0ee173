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


// Package archive ingests zip archives. Its unit of work is one archive
// member rather than one record, so it implements ingest.Processor
// directly instead of the batch-generator contract: each new member is
// digested and upserted as its own single-record batch.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/inflow/core"
	"github.com/poiesic/inflow/ingest"
	"github.com/poiesic/inflow/storage"
)

// ZipProcessor extracts a zip archive to a scratch directory, digests every
// regular file, and upserts each previously unseen digest as a
// {path, fingerprint} record. The scratch directory is removed on every
// exit path.
type ZipProcessor struct {
	store  storage.Adapter
	logger *slog.Logger
}

// ZipOption configures a ZipProcessor.
type ZipOption func(*ZipProcessor)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) ZipOption {
	return func(p *ZipProcessor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewZipProcessor creates a zip archive processor writing through store.
func NewZipProcessor(store storage.Adapter, opts ...ZipOption) (*ZipProcessor, error) {
	if store == nil {
		return nil, ingest.ErrStoreRequired
	}
	p := &ZipProcessor{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "zip-processor")
	return p, nil
}

// Ingest extracts the archive at source and upserts one record per new
// file. The returned count covers non-duplicate files only.
func (p *ZipProcessor) Ingest(ctx context.Context, source string, opts *ingest.Options) (*ingest.IngestionResult, error) {
	if opts == nil {
		opts = &ingest.Options{}
	}

	scratch, err := os.MkdirTemp("", "inflow-zip-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			p.logger.Warn("scratch directory not removed", "dir", scratch, "err", rmErr)
		}
	}()

	if err := extractZip(source, scratch); err != nil {
		return nil, err
	}

	result := &ingest.IngestionResult{Backends: make(map[string]bool)}
	err = filepath.WalkDir(scratch, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(scratch, path)
		if err != nil {
			return err
		}
		return p.ingestFile(ctx, path, rel, opts, result)
	})
	if err != nil {
		return result, fmt.Errorf("walking archive %s: %w", source, err)
	}

	p.logger.Info("archive ingested", "source", source, "files", result.Count)
	return result, nil
}

func (p *ZipProcessor) ingestFile(ctx context.Context, path, rel string, opts *ingest.Options, result *ingest.IngestionResult) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fp := core.FingerprintBytes(content)
	exists, err := p.store.Exists(ctx, fp)
	if err != nil {
		return err
	}
	if exists {
		p.logger.Debug("skipping duplicate archive member", "path", rel)
		return nil
	}

	record := core.Record{
		"path":                rel,
		"size":                int64(len(content)),
		core.FingerprintField: string(fp),
	}
	if opts.Validate != nil && !opts.Validate(record) {
		return nil
	}
	if opts.Enrich != nil {
		record = opts.Enrich(record)
	}

	res, err := p.store.UpsertBatch(ctx, []core.Record{record})
	if err != nil {
		return err
	}
	result.Count++
	if res != nil {
		for backend, ok := range res.Backends {
			if prev, seen := result.Backends[backend]; seen {
				result.Backends[backend] = prev && ok
			} else {
				result.Backends[backend] = ok
			}
		}
		result.Errors = append(result.Errors, res.Errors...)
	}

	if opts.Progress != nil {
		opts.Progress(result.Count, 1)
	}
	return nil
}

// extractZip unpacks the archive into dest, refusing member names that
// would escape it.
func extractZip(source, dest string) error {
	reader, err := zip.OpenReader(source)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", source, err)
	}
	defer reader.Close()

	for _, member := range reader.File {
		if err := extractMember(member, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractMember(member *zip.File, dest string) error {
	target := filepath.Join(dest, member.Name)
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return fmt.Errorf("archive member %q escapes extraction directory", member.Name)
	}

	if member.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := member.Open()
	if err != nil {
		return fmt.Errorf("opening archive member %q: %w", member.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("extracting archive member %q: %w", member.Name, err)
	}
	return nil
}
