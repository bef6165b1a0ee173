package storage

import "fmt"

// Status classifies a batch upsert outcome.
type Status int

const (
	// StatusOK means every backend accepted the full batch.
	StatusOK Status = iota
	// StatusPartial means some but not all backends or records succeeded.
	// Details are carried in UpsertResult.Errors.
	StatusPartial
)

// WriteError describes one failed write within a batch: which backend
// failed, which record it concerned, and why.
type WriteError struct {
	// Backend names the failing backend, e.g. "structured", "vector",
	// "embedding".
	Backend string

	// RecordIndex is the index of the affected record within the batch,
	// or -1 when the failure applies to the batch as a whole.
	RecordIndex int

	Message string
}

func (e WriteError) Error() string {
	if e.RecordIndex < 0 {
		return fmt.Sprintf("%s: %s", e.Backend, e.Message)
	}
	return fmt.Sprintf("%s: record %d: %s", e.Backend, e.RecordIndex, e.Message)
}

// UpsertResult is the tagged outcome of a batch upsert. Callers must handle
// all three cases: StatusOK, StatusPartial, and a non-nil error from
// UpsertBatch (total failure).
type UpsertResult struct {
	Status Status

	// Backends maps each backend name to whether its write succeeded.
	Backends map[string]bool

	// Errors holds the per-record and per-backend failures collected while
	// the batch was written. Non-empty implies StatusPartial.
	Errors []WriteError
}

// OK builds a fully successful result for the named backends.
func OK(backends ...string) *UpsertResult {
	flags := make(map[string]bool, len(backends))
	for _, b := range backends {
		flags[b] = true
	}
	return &UpsertResult{Status: StatusOK, Backends: flags}
}
