package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/inflow/core"
	"github.com/poiesic/inflow/storage"
)

func setupStores(t *testing.T) (storage.Adapter, storage.VectorStore) {
	t.Helper()

	docs, vectors, backend, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	return docs, vectors
}

func stamped(record core.Record) core.Record {
	record[core.FingerprintField] = string(core.FingerprintRecord(record))
	return record
}

func TestDocumentStore_UpsertAndExists(t *testing.T) {
	docs, _ := setupStores(t)
	ctx := context.Background()

	record := stamped(core.Record{"name": "Alice", "city": "Paris"})
	fp := core.Fingerprint(record[core.FingerprintField].(string))

	exists, err := docs.Exists(ctx, fp)
	require.NoError(t, err)
	assert.False(t, exists)

	res, err := docs.UpsertBatch(ctx, []core.Record{record})
	require.NoError(t, err)
	assert.Equal(t, storage.StatusOK, res.Status)
	assert.True(t, res.Backends[BackendName])

	exists, err = docs.Exists(ctx, fp)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDocumentStore_UpsertIdempotent(t *testing.T) {
	docs, _ := setupStores(t)
	ctx := context.Background()

	record := stamped(core.Record{"name": "Alice"})

	_, err := docs.UpsertBatch(ctx, []core.Record{record})
	require.NoError(t, err)
	_, err = docs.UpsertBatch(ctx, []core.Record{record})
	require.NoError(t, err)

	fp := core.Fingerprint(record[core.FingerprintField].(string))
	doc, err := docs.(*DocumentStore).Get(ctx, fp)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, string(fp), doc.Fingerprint)
}

func TestDocumentStore_MissingFingerprint(t *testing.T) {
	docs, _ := setupStores(t)

	_, err := docs.UpsertBatch(context.Background(), []core.Record{{"name": "Alice"}})
	assert.ErrorIs(t, err, storage.ErrMissingFingerprint)
}

func TestDocumentStore_EmptyBatch(t *testing.T) {
	docs, _ := setupStores(t)

	_, err := docs.UpsertBatch(context.Background(), nil)
	assert.ErrorIs(t, err, storage.ErrEmptyBatch)
}

func TestVectorStore_UpsertAndFindSimilar(t *testing.T) {
	_, vectors, backend, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	ctx := context.Background()

	items := []storage.VectorItem{
		{ID: "a", Fingerprint: "fp-a", Content: "alpha", Vector: []float32{1, 0, 0}},
		{ID: "b", Fingerprint: "fp-b", Content: "beta", Vector: []float32{0, 1, 0}},
		{ID: "c", Fingerprint: "fp-c", Content: "gamma", Vector: []float32{0.9, 0.1, 0}},
	}
	require.NoError(t, vectors.UpsertVectors(ctx, items))

	matches, err := vectors.FindSimilar(ctx, []float32{1, 0, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "fp-a", matches[0].Item.Fingerprint)
	assert.Equal(t, "fp-c", matches[1].Item.Fingerprint)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestVectorStore_NormalizesOnWrite(t *testing.T) {
	_, vectors, backend, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	ctx := context.Background()

	// Same direction, different magnitude: both should match the unit query
	// with score ~1.
	require.NoError(t, vectors.UpsertVectors(ctx, []storage.VectorItem{
		{ID: "a", Fingerprint: "fp-a", Vector: []float32{10, 0}},
	}))

	matches, err := vectors.FindSimilar(ctx, []float32{1, 0}, 0.99, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, float64(matches[0].Score), 1e-5)
}
