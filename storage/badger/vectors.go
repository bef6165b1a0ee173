package badger

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/inflow/storage"
)

// VectorStore is a storage.VectorStore backed by BadgerDB. Items are keyed
// by fingerprint under a prefix disjoint from the document store's, so both
// stores can share one Backend.
type VectorStore struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a vector store on the given backend.
func NewVectorStore(backend *Backend) (*VectorStore, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &VectorStore{
		backend: backend,
		logger:  slog.Default().With("component", "badger-vectors"),
	}, nil
}

// UpsertVectors writes embedded items in one transaction. Vectors are
// normalized to unit length before storage so similarity lookups can use
// the dot product.
func (s *VectorStore) UpsertVectors(ctx context.Context, items []storage.VectorItem) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if len(items) == 0 {
		return storage.ErrEmptyBatch
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		for i := range items {
			item := items[i]
			item.Vector = storage.NormalizeVector(item.Vector)
			if err := tx.Set(makeVectorKey(item.Fingerprint), storage.MarshalVectorItem(&item)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// FindSimilar scans stored items and returns those whose similarity to the
// query vector is at least minSimilarity, best first, up to limit.
func (s *VectorStore) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*storage.SimilarityMatch, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	query := storage.NormalizeVector(vector)
	var matches []*storage.SimilarityMatch

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var item *storage.VectorItem
			err := iter.Item().Value(func(val []byte) error {
				var err error
				item, err = storage.UnmarshalVectorItem(val)
				return err
			})
			if err != nil {
				return err
			}
			if item == nil || len(item.Vector) == 0 {
				continue
			}

			score := storage.DotProduct(query, item.Vector)
			if score >= minSimilarity {
				matches = append(matches, &storage.SimilarityMatch{Item: item, Score: score})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b *storage.SimilarityMatch) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Close is a no-op for the store itself; the shared Backend owns the
// database handle.
func (s *VectorStore) Close() error {
	return nil
}
