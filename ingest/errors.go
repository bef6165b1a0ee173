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


package ingest

import "errors"

var (
	// ErrGeneratorRequired is returned when a batch generator is not provided.
	ErrGeneratorRequired = errors.New("batch generator required")

	// ErrStoreRequired is returned when a storage adapter is not provided.
	ErrStoreRequired = errors.New("storage adapter required")

	// ErrUnknownSourceType is returned when no processor is registered for
	// a source type.
	ErrUnknownSourceType = errors.New("unknown source type")
)
