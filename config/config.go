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


// Package config loads TOML configuration for the ingestion pipeline and
// its connectors.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level TOML document.
type Config struct {
	Pipeline  Pipeline  `toml:"pipeline"`
	Storage   Storage   `toml:"storage"`
	Embedding Embedding `toml:"embedding"`
	REST      REST      `toml:"rest"`
	WebSocket WebSocket `toml:"websocket"`
}

// Pipeline holds the engine-level settings.
type Pipeline struct {
	BatchSize     int  `toml:"batch_size"`
	Deduplication bool `toml:"deduplication"`

	// MaxConcurrentBatches is advisory; see ingest.WithMaxConcurrentBatches.
	MaxConcurrentBatches int `toml:"max_concurrent_batches"`
}

// Storage selects the badger location and whether the dual vector-writing
// mode is active.
type Storage struct {
	Path     string `toml:"path"`
	InMemory bool   `toml:"in_memory"`
	Dual     bool   `toml:"dual"`
}

// Embedding configures the OpenAI-compatible embedding endpoint used in
// dual mode.
type Embedding struct {
	Host  string `toml:"host"`
	Model string `toml:"model"`
}

// REST configures the REST paginator.
type REST struct {
	PaginationType string `toml:"pagination_type"`
	PageParam      string `toml:"page_param"`
	SizeParam      string `toml:"size_param"`
	OffsetParam    string `toml:"offset_param"`
	LimitParam     string `toml:"limit_param"`
	CursorParam    string `toml:"cursor_param"`
	PageSize       int    `toml:"page_size"`
	MaxPages       int    `toml:"max_pages"`
	ResultsPath    string `toml:"results_path"`
	CursorPath     string `toml:"cursor_path"`
}

// WebSocket configures the streaming connector.
type WebSocket struct {
	MaxMessages          int           `toml:"max_messages"`
	Timeout              time.Duration `toml:"timeout"`
	MaxReconnectAttempts int           `toml:"max_reconnect_attempts"`
	ReconnectOnError     bool          `toml:"reconnect_on_error"`
	HeartbeatInterval    time.Duration `toml:"heartbeat_interval"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			BatchSize:     100,
			Deduplication: true,
		},
		Storage: Storage{
			Path: "inflow.db",
		},
		Embedding: Embedding{
			Host:  "http://localhost:11434/v1",
			Model: "embeddinggemma",
		},
		REST: REST{
			PaginationType: "none",
			PageSize:       100,
		},
		WebSocket: WebSocket{
			MaxReconnectAttempts: 5,
			ReconnectOnError:     true,
		},
	}
}

// Load reads a TOML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("pipeline.batch_size must be positive, got %d", c.Pipeline.BatchSize)
	}
	if c.REST.PageSize < 1 {
		return fmt.Errorf("rest.page_size must be positive, got %d", c.REST.PageSize)
	}
	if c.WebSocket.MaxReconnectAttempts < 1 {
		return fmt.Errorf("websocket.max_reconnect_attempts must be positive, got %d", c.WebSocket.MaxReconnectAttempts)
	}
	return nil
}
