package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
[pipeline]
batch_size = 25

[storage]
path = "/var/lib/inflow"
dual = true

[rest]
pagination_type = "cursor"
results_path = "data.items"
cursor_path = "data.next"

[websocket]
max_messages = 500
timeout = "30s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Pipeline.BatchSize)
	assert.Equal(t, "/var/lib/inflow", cfg.Storage.Path)
	assert.True(t, cfg.Storage.Dual)
	assert.Equal(t, "cursor", cfg.REST.PaginationType)
	assert.Equal(t, "data.items", cfg.REST.ResultsPath)
	assert.Equal(t, 500, cfg.WebSocket.MaxMessages)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.Timeout)

	// Untouched keys keep defaults.
	assert.True(t, cfg.Pipeline.Deduplication)
	assert.Equal(t, 100, cfg.REST.PageSize)
	assert.Equal(t, "embeddinggemma", cfg.Embedding.Model)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := writeConfig(t, "[pipeline\nbatch_size = ")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "[pipeline]\nbatch_size = 0\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
