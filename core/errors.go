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

import "errors"

var (
	// ErrUnsupportedFormat indicates a source format with no processor
	// (XML, PDF, Excel, Parquet, Avro). These fail closed rather than
	// guessing at behavior.
	ErrUnsupportedFormat = errors.New("unsupported source format")

	// ErrInvalidBatchSize indicates a non-positive batch size.
	ErrInvalidBatchSize = errors.New("batch size must be positive")

	// ErrEmptyRecord indicates a record with no fields.
	ErrEmptyRecord = errors.New("record has no fields")
)
