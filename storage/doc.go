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


// Package storage provides the storage abstraction layer for inflow.
//
// This package defines the Adapter and VectorStore interfaces that decouple
// storage backends from the ingestion engine, plus the tagged UpsertResult
// type adapters return so callers can distinguish fully ingested, partially
// ingested, and fully failed batches.
//
// # Partial failure
//
// An adapter that writes to multiple backends never models partial failure
// as an error value. It collects each backend's failure into the result's
// Errors list and sets Status to StatusPartial; a non-nil error from
// UpsertBatch is reserved for batches that failed entirely.
//
// # Thread Safety
//
// An Adapter may be shared across concurrent ingests only if its Exists and
// UpsertBatch methods are safe for concurrent invocation; the framework
// imposes no locking of its own.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
package storage
