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


// Package ai defines the embedding-service abstraction used by inflow.
//
// The dual-backend storage adapter enriches each ingested record with a
// vector embedding obtained through the Embedder interface. Concrete
// implementations live in subpackages: openai (langchaingo client for
// OpenAI-compatible APIs) and mock (deterministic test double).
//
// The framework calls an Embedder once per record with no retry of its own;
// implementations decide their own resilience policy.
package ai
