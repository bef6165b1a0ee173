package archive

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/inflow/core"
	"github.com/poiesic/inflow/ingest"
	"github.com/poiesic/inflow/storage/badger"
)

func writeZip(t *testing.T, members map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range members {
		member, err := w.Create(name)
		require.NoError(t, err)
		_, err = member.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func setupProcessor(t *testing.T) *ZipProcessor {
	t.Helper()
	docs, _, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	proc, err := NewZipProcessor(docs)
	require.NoError(t, err)
	return proc
}

func TestZip_CountsDistinctFilesOnly(t *testing.T) {
	// Two members with identical content carry the same digest; only one
	// counts.
	path := writeZip(t, map[string]string{
		"a.txt":        "hello",
		"nested/b.txt": "hello",
		"c.txt":        "world",
	})
	proc := setupProcessor(t)

	result, err := proc.Ingest(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
}

func TestZip_SecondRunIsFullyDeduplicated(t *testing.T) {
	path := writeZip(t, map[string]string{"a.txt": "alpha", "b.txt": "beta"})
	proc := setupProcessor(t)

	first, err := proc.Ingest(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Count)

	second, err := proc.Ingest(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Count)
}

func TestZip_RecordsCarryPathAndFingerprint(t *testing.T) {
	path := writeZip(t, map[string]string{"docs/readme.md": "content"})
	proc := setupProcessor(t)

	var seen []core.Record
	_, err := proc.Ingest(context.Background(), path, &ingest.Options{
		Enrich: func(record core.Record) core.Record {
			seen = append(seen, record)
			return record
		},
	})
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, filepath.Join("docs", "readme.md"), seen[0]["path"])
	assert.Equal(t, string(core.FingerprintBytes([]byte("content"))), seen[0][core.FingerprintField])
}

func TestZip_ValidationDrops(t *testing.T) {
	path := writeZip(t, map[string]string{"keep.txt": "x", "drop.log": "y"})
	proc := setupProcessor(t)

	result, err := proc.Ingest(context.Background(), path, &ingest.Options{
		Validate: func(record core.Record) bool {
			return filepath.Ext(record["path"].(string)) == ".txt"
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
}

func TestZip_MissingArchive(t *testing.T) {
	proc := setupProcessor(t)
	_, err := proc.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), nil)
	assert.Error(t, err)
}

func TestZip_ScratchDirectoryRemoved(t *testing.T) {
	path := writeZip(t, map[string]string{"a.txt": "alpha"})
	proc := setupProcessor(t)

	before := countTempDirs(t)
	_, err := proc.Ingest(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, before, countTempDirs(t))
}

func countTempDirs(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "inflow-zip-*"))
	require.NoError(t, err)
	return len(matches)
}

func TestNewZipProcessor_RequiresStore(t *testing.T) {
	_, err := NewZipProcessor(nil)
	assert.ErrorIs(t, err, ingest.ErrStoreRequired)
}
