package inflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/inflow/ai/mock"
	"github.com/poiesic/inflow/config"
	"github.com/poiesic/inflow/core"
	"github.com/poiesic/inflow/ingest"
)

func memoryConfig() config.Config {
	cfg := config.Default()
	cfg.Storage.InMemory = true
	cfg.Pipeline.BatchSize = 10
	return cfg
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFramework_FileIngestEndToEnd(t *testing.T) {
	f, err := New(WithConfig(memoryConfig()))
	require.NoError(t, err)
	defer f.Close()

	path := writeCSV(t, "name,role\nada,engineer\ngrace,admiral\n")

	result, err := f.Ingest(context.Background(), "csv", path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)

	// Re-ingesting the same file writes nothing new.
	again, err := f.Ingest(context.Background(), "csv", path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Count)
}

func TestFramework_UnknownSourceType(t *testing.T) {
	f, err := New(WithConfig(memoryConfig()))
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Ingest(context.Background(), "ftp", "ftp://example.com", nil)
	assert.ErrorIs(t, err, ingest.ErrUnknownSourceType)
}

func TestFramework_DualModeSearch(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.Dual = true

	f, err := New(WithConfig(cfg), WithEmbedder(mock.NewEmbedder()))
	require.NoError(t, err)
	defer f.Close()

	path := writeCSV(t, "text\nbadger locks\nembedding pools\n")
	result, err := f.Ingest(context.Background(), "csv", path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.True(t, result.Backends["structured"])
	assert.True(t, result.Backends["vector"])

	matches, err := f.Search(context.Background(), "badger locks", -1, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, matches)
}

func TestFramework_SearchRequiresDualMode(t *testing.T) {
	f, err := New(WithConfig(memoryConfig()))
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Search(context.Background(), "anything", 0, 5)
	assert.Error(t, err)
}

func TestFramework_HooksFlowThroughPipeline(t *testing.T) {
	f, err := New(WithConfig(memoryConfig()))
	require.NoError(t, err)
	defer f.Close()

	var progressCalls int
	f.Pipeline().SetProgress(func(total, batch int) { progressCalls++ })
	f.Pipeline().SetEnrichment(func(record core.Record) core.Record {
		record["ingested_by"] = "test"
		return record
	})

	path := writeCSV(t, "id\n1\n2\n3\n")
	result, err := f.Ingest(context.Background(), "csv", path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, 1, progressCalls)
}

func TestFramework_RejectsInvalidConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.Pipeline.BatchSize = 0
	_, err := New(WithConfig(cfg))
	assert.Error(t, err)
}
