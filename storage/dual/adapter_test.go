package dual

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/inflow/ai/mock"
	"github.com/poiesic/inflow/core"
	"github.com/poiesic/inflow/storage"
)

// fakeAdapter implements storage.Adapter with controllable failures.
type fakeAdapter struct {
	mu       sync.Mutex
	upserted [][]core.Record
	failWith error
	seen     map[core.Fingerprint]bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{seen: make(map[core.Fingerprint]bool)}
}

func (f *fakeAdapter) Exists(ctx context.Context, fp core.Fingerprint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[fp], nil
}

func (f *fakeAdapter) UpsertBatch(ctx context.Context, records []core.Record) (*storage.UpsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.upserted = append(f.upserted, records)
	for _, record := range records {
		if fp, ok := record[core.FingerprintField].(string); ok {
			f.seen[core.Fingerprint(fp)] = true
		}
	}
	return storage.OK("structured"), nil
}

func (f *fakeAdapter) Close() error { return nil }

// fakeVectorStore implements storage.VectorStore with controllable failures.
type fakeVectorStore struct {
	mu       sync.Mutex
	items    []storage.VectorItem
	failWith error
	// writeOrder records when the vector write happened relative to the
	// structured store (filled in by the ordering test).
	onUpsert func()
}

func (f *fakeVectorStore) UpsertVectors(ctx context.Context, items []storage.VectorItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onUpsert != nil {
		f.onUpsert()
	}
	if f.failWith != nil {
		return f.failWith
	}
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeVectorStore) Close() error { return nil }

func stamped(record core.Record) core.Record {
	record[core.FingerprintField] = string(core.FingerprintRecord(record))
	return record
}

func testBatch(n int) []core.Record {
	records := make([]core.Record, n)
	for i := range records {
		records[i] = stamped(core.Record{"index": i})
	}
	return records
}

func TestAdapter_UpsertBatch_FullSuccess(t *testing.T) {
	structured := newFakeAdapter()
	vectors := &fakeVectorStore{}
	adapter, err := New(structured, vectors, mock.NewEmbedder())
	require.NoError(t, err)
	defer adapter.Release()

	res, err := adapter.UpsertBatch(context.Background(), testBatch(3))
	require.NoError(t, err)

	assert.Equal(t, storage.StatusOK, res.Status)
	assert.True(t, res.Backends[StructuredBackend])
	assert.True(t, res.Backends[VectorBackend])
	assert.Empty(t, res.Errors)
	assert.Len(t, structured.upserted, 1)
	assert.Len(t, vectors.items, 3)

	// Each vector item carries a generated identifier and the record's
	// fingerprint.
	for _, item := range vectors.items {
		assert.NotEmpty(t, item.ID)
		assert.NotEmpty(t, item.Fingerprint)
		assert.NotEmpty(t, item.Vector)
	}
}

func TestAdapter_UpsertBatch_VectorFailureIsPartial(t *testing.T) {
	structured := newFakeAdapter()
	vectors := &fakeVectorStore{failWith: errors.New("vector store down")}
	adapter, err := New(structured, vectors, mock.NewEmbedder())
	require.NoError(t, err)
	defer adapter.Release()

	res, err := adapter.UpsertBatch(context.Background(), testBatch(2))
	require.NoError(t, err, "partial failure must not discard the structured write's success")

	assert.Equal(t, storage.StatusPartial, res.Status)
	assert.True(t, res.Backends[StructuredBackend])
	assert.False(t, res.Backends[VectorBackend])
	require.Len(t, res.Errors, 1)
	assert.Equal(t, VectorBackend, res.Errors[0].Backend)
	assert.Len(t, structured.upserted, 1)
}

func TestAdapter_UpsertBatch_StructuredFailureIsPartial(t *testing.T) {
	structured := newFakeAdapter()
	structured.failWith = errors.New("document store down")
	vectors := &fakeVectorStore{}
	adapter, err := New(structured, vectors, mock.NewEmbedder())
	require.NoError(t, err)
	defer adapter.Release()

	res, err := adapter.UpsertBatch(context.Background(), testBatch(2))
	require.NoError(t, err)

	assert.Equal(t, storage.StatusPartial, res.Status)
	assert.False(t, res.Backends[StructuredBackend])
	assert.True(t, res.Backends[VectorBackend])
	assert.Len(t, vectors.items, 2)
}

func TestAdapter_UpsertBatch_TotalFailure(t *testing.T) {
	structured := newFakeAdapter()
	structured.failWith = errors.New("document store down")
	vectors := &fakeVectorStore{failWith: errors.New("vector store down")}
	adapter, err := New(structured, vectors, mock.NewEmbedder())
	require.NoError(t, err)
	defer adapter.Release()

	res, err := adapter.UpsertBatch(context.Background(), testBatch(2))
	require.Error(t, err)
	assert.Nil(t, res)

	var total *TotalFailureError
	require.ErrorAs(t, err, &total)
	assert.Len(t, total.Errors, 2)
}

func TestAdapter_UpsertBatch_EmbeddingErrorsCollected(t *testing.T) {
	structured := newFakeAdapter()
	vectors := &fakeVectorStore{}
	embedder := mock.NewEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if text == `{"index":1}` {
			return nil, errors.New("model overloaded")
		}
		return []float32{0.1, 0.2}, nil
	}
	adapter, err := New(structured, vectors, embedder)
	require.NoError(t, err)
	defer adapter.Release()

	res, err := adapter.UpsertBatch(context.Background(), testBatch(3))
	require.NoError(t, err, "one record's embedding failure must not abort the batch")

	assert.Equal(t, storage.StatusPartial, res.Status)
	assert.True(t, res.Backends[StructuredBackend])
	assert.True(t, res.Backends[VectorBackend])
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "embedding", res.Errors[0].Backend)
	assert.Equal(t, 1, res.Errors[0].RecordIndex)

	// All records reach the structured store; only embedded ones reach the
	// vector store.
	assert.Len(t, structured.upserted[0], 3)
	assert.Len(t, vectors.items, 2)
}

func TestAdapter_UpsertBatch_StructuredWrittenFirst(t *testing.T) {
	structured := newFakeAdapter()
	vectors := &fakeVectorStore{}
	vectors.onUpsert = func() {
		structured.mu.Lock()
		defer structured.mu.Unlock()
		assert.Len(t, structured.upserted, 1, "vector write must come after structured write")
	}
	adapter, err := New(structured, vectors, mock.NewEmbedder())
	require.NoError(t, err)
	defer adapter.Release()

	_, err = adapter.UpsertBatch(context.Background(), testBatch(1))
	require.NoError(t, err)
}

func TestAdapter_BoundedFanOut(t *testing.T) {
	structured := newFakeAdapter()
	vectors := &fakeVectorStore{}

	var mu sync.Mutex
	inFlight, peak := 0, 0
	embedder := mock.NewEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		defer func() {
			mu.Lock()
			inFlight--
			mu.Unlock()
		}()
		return []float32{1}, nil
	}

	adapter, err := New(structured, vectors, embedder, WithPoolSize(2))
	require.NoError(t, err)
	defer adapter.Release()

	_, err = adapter.UpsertBatch(context.Background(), testBatch(16))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, 2, "concurrent embedding calls must respect the pool bound")
}

func TestAdapter_Exists_DelegatesToStructured(t *testing.T) {
	structured := newFakeAdapter()
	vectors := &fakeVectorStore{}
	adapter, err := New(structured, vectors, mock.NewEmbedder())
	require.NoError(t, err)
	defer adapter.Release()

	record := stamped(core.Record{"k": "v"})
	fp := core.Fingerprint(record[core.FingerprintField].(string))

	exists, err := adapter.Exists(context.Background(), fp)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = adapter.UpsertBatch(context.Background(), []core.Record{record})
	require.NoError(t, err)

	exists, err = adapter.Exists(context.Background(), fp)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, &fakeVectorStore{}, mock.NewEmbedder())
	assert.ErrorIs(t, err, ErrStructuredStoreRequired)

	_, err = New(newFakeAdapter(), nil, mock.NewEmbedder())
	assert.ErrorIs(t, err, ErrVectorStoreRequired)

	_, err = New(newFakeAdapter(), &fakeVectorStore{}, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}
