package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRoundTrip(t *testing.T) {
	doc := &Document{
		ID:          "0191d3a0-55aa-7000-8000-000000000001",
		Fingerprint: "abc123",
		Content:     `{"name":"Alice","city":"Paris"}`,
		IngestedAt:  1735689600,
	}

	data := MarshalDocument(doc)
	got, err := UnmarshalDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestVectorItemRoundTrip(t *testing.T) {
	item := &VectorItem{
		ID:          "0191d3a0-55aa-7000-8000-000000000002",
		Fingerprint: "def456",
		Content:     `{"name":"Bob"}`,
		Vector:      []float32{0.1, -0.5, 0.75},
	}

	data := MarshalVectorItem(item)
	got, err := UnmarshalVectorItem(data)
	require.NoError(t, err)
	assert.Equal(t, item, got)
}

func TestUnmarshalDocument_Truncated(t *testing.T) {
	doc := &Document{ID: "id", Fingerprint: "fp", Content: "content"}
	data := MarshalDocument(doc)

	_, err := UnmarshalDocument(data[:3])
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestWriteError_Error(t *testing.T) {
	batchWide := WriteError{Backend: "vector", RecordIndex: -1, Message: "connection refused"}
	assert.Equal(t, "vector: connection refused", batchWide.Error())

	perRecord := WriteError{Backend: "embedding", RecordIndex: 4, Message: "model overloaded"}
	assert.Equal(t, "embedding: record 4: model overloaded", perRecord.Error())
}
