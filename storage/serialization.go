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


package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Document is the stored envelope for a structured-store record: the
// canonical JSON of the source record plus its identity and dedup key.
type Document struct {
	ID          string
	Fingerprint string
	Content     string
	IngestedAt  int64 // unix seconds
}

// VectorItem is the stored envelope for a vector-store record. ID is shared
// with the Document written for the same source record.
type VectorItem struct {
	ID          string
	Fingerprint string
	Content     string
	Vector      []float32
}

var float32SliceMUS = ord.NewSliceSer[float32](raw.Float32)

type documentMUS struct{}

// DocumentMUS serializes Document values in MUS format.
var DocumentMUS = documentMUS{}

func (documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Fingerprint, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += varint.Int64.Marshal(v.IngestedAt, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Fingerprint, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.IngestedAt, n1, err = varint.Int64.Unmarshal(bs[n:])
	return v, n + n1, err
}

func (documentMUS) Size(v Document) int {
	return ord.String.Size(v.ID) +
		ord.String.Size(v.Fingerprint) +
		ord.String.Size(v.Content) +
		varint.Int64.Size(v.IngestedAt)
}

type vectorItemMUS struct{}

// VectorItemMUS serializes VectorItem values in MUS format.
var VectorItemMUS = vectorItemMUS{}

func (vectorItemMUS) Marshal(v VectorItem, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Fingerprint, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += float32SliceMUS.Marshal(v.Vector, bs[n:])
	return n
}

func (vectorItemMUS) Unmarshal(bs []byte) (v VectorItem, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Fingerprint, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.Vector, n1, err = float32SliceMUS.Unmarshal(bs[n:])
	return v, n + n1, err
}

func (vectorItemMUS) Size(v VectorItem) int {
	return ord.String.Size(v.ID) +
		ord.String.Size(v.Fingerprint) +
		ord.String.Size(v.Content) +
		float32SliceMUS.Size(v.Vector)
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *Document) []byte {
	buf := make([]byte, DocumentMUS.Size(*doc))
	DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*Document, error) {
	doc, _, err := DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &doc, nil
}

// MarshalVectorItem serializes a VectorItem to bytes.
func MarshalVectorItem(item *VectorItem) []byte {
	buf := make([]byte, VectorItemMUS.Size(*item))
	VectorItemMUS.Marshal(*item, buf)
	return buf
}

// UnmarshalVectorItem deserializes a VectorItem from bytes.
func UnmarshalVectorItem(data []byte) (*VectorItem, error) {
	item, _, err := VectorItemMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &item, nil
}
