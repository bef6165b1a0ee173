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


package core

import "time"

// SourceType tags which kind of connector produced a ProcessedData item.
type SourceType string

const (
	SourceTypeREST      SourceType = "rest_api"
	SourceTypeGraphQL   SourceType = "graphql"
	SourceTypeWebSocket SourceType = "websocket"
)

// ProcessedData is the normalized output of an API or stream connector.
// One item is created per yielded payload element and consumed immediately
// by the caller; the framework never persists it itself.
type ProcessedData struct {
	// Raw is the decoded payload element as received from the source.
	Raw any

	// Content is the serialized (canonical JSON or raw text) form of Raw.
	Content string

	SourceType SourceType
	SourceURL  string

	// Metadata carries per-item context such as the pagination coordinates
	// that produced the item, for reproducible debugging of partial ingests.
	Metadata map[string]string

	// Checksum is a content digest of Content.
	Checksum Fingerprint

	Stats ProcessingStats

	// Err is non-empty when the item records a connector-level failure
	// (GraphQL partial errors, transport errors) instead of data.
	Err string
}

// IsError reports whether the item is error-tagged rather than data.
func (p *ProcessedData) IsError() bool {
	return p.Err != ""
}

// ProcessingStats records the exact coordinates at which an item was
// produced: pagination position for paged APIs, running counters for
// streaming sources.
type ProcessingStats struct {
	Page       int
	Offset     int
	Cursor     string
	ItemIndex  int
	TotalItems int

	// Messages is the running message count for streaming sources.
	Messages int

	// Connected is how long the current connection had been open when the
	// item was produced.
	Connected time.Duration
}
