package core

import (
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/go-crypt/x/blake2b"
)

// FingerprintField is the record key under which the ingestion engine stamps
// the computed fingerprint before handing a record to storage.
const FingerprintField = "_fingerprint"

// Fingerprint is a deterministic digest of a record's content, used as the
// deduplication key.
type Fingerprint string

// FingerprintFunc computes the Fingerprint for a record. Implementations
// must be deterministic: two structurally equal records (ignoring key order)
// must map to the same value. Callers may substitute a domain-specific
// function for partial-key or semantic dedup.
type FingerprintFunc func(Record) Fingerprint

// FingerprintRecord is the default FingerprintFunc: a BLAKE2b-256 digest
// over the record's sorted (key, stringified value) pairs. Map iteration
// order does not affect the result. The FingerprintField key itself is
// excluded so that an already-stamped record keeps a stable fingerprint.
func FingerprintRecord(record Record) Fingerprint {
	keys := make([]string, 0, len(record))
	for k := range record {
		if k == FingerprintField {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	h, _ := blake2b.New(32, nil)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v;", k, record[k])
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// FingerprintBytes digests raw content, such as an archive member's bytes
// or a serialized API payload.
func FingerprintBytes(data []byte) Fingerprint {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}
