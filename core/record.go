package core

import "encoding/json"

// Record is a single source-format-agnostic data record: an open mapping of
// field name to scalar or nested value. Records carry no fixed schema;
// identity is structural (see Fingerprint).
type Record map[string]any

// CanonicalJSON renders the record as JSON with lexicographically ordered
// keys. The result is used as checksum and embedding input, so two
// structurally equal records always serialize identically.
func (r Record) CanonicalJSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
