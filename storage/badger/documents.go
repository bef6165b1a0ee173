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


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/poiesic/inflow/core"
	"github.com/poiesic/inflow/storage"
)

// BackendName identifies the document store in UpsertResult backend flags.
const BackendName = "badger"

// DocumentStore is a storage.Adapter backed by BadgerDB. Records are keyed
// by fingerprint, which makes repeated upserts of the same record
// idempotent.
type DocumentStore struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.Adapter = (*DocumentStore)(nil)

// NewDocumentStore creates a document store on the given backend.
func NewDocumentStore(backend *Backend) (*DocumentStore, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &DocumentStore{
		backend: backend,
		logger:  slog.Default().With("component", "badger-documents"),
	}, nil
}

// Exists reports whether a document with the given fingerprint is stored.
func (s *DocumentStore) Exists(ctx context.Context, fp core.Fingerprint) (bool, error) {
	if s.backend.IsClosed() {
		return false, storage.ErrStorageClosed
	}

	found := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeDocumentKey(string(fp)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	}, false)
	if err != nil {
		return false, err
	}
	return found, nil
}

// UpsertBatch writes a batch of fingerprinted records in one transaction.
func (s *DocumentStore) UpsertBatch(ctx context.Context, records []core.Record) (*storage.UpsertResult, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if len(records) == 0 {
		return nil, storage.ErrEmptyBatch
	}

	docs := make([]*storage.Document, len(records))
	now := time.Now().UTC().Unix()
	for i, record := range records {
		fp, _ := record[core.FingerprintField].(string)
		if fp == "" {
			return nil, fmt.Errorf("%w: record %d", storage.ErrMissingFingerprint, i)
		}
		content, err := record.CanonicalJSON()
		if err != nil {
			return nil, fmt.Errorf("serializing record %d: %w", i, err)
		}
		docs[i] = &storage.Document{
			ID:          uuid.NewString(),
			Fingerprint: fp,
			Content:     content,
			IngestedAt:  now,
		}
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			if err := tx.Set(makeDocumentKey(doc.Fingerprint), storage.MarshalDocument(doc)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("upserted batch", "records", len(records))
	return storage.OK(BackendName), nil
}

// Get retrieves a stored document by fingerprint. Returns nil when absent.
func (s *DocumentStore) Get(ctx context.Context, fp core.Fingerprint) (*storage.Document, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var doc *storage.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentKey(string(fp)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			doc, err = storage.UnmarshalDocument(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Close is a no-op for the store itself; the shared Backend owns the
// database handle.
func (s *DocumentStore) Close() error {
	return nil
}
