package ingest

import "github.com/poiesic/inflow/storage"

// IngestionResult summarizes one ingest call: how many records were written
// (excluding duplicates and validation drops), the collected write errors,
// and per-backend success flags for partial-failure scenarios.
type IngestionResult struct {
	Count    int
	Errors   []storage.WriteError
	Backends map[string]bool
}

func newIngestionResult() *IngestionResult {
	return &IngestionResult{Backends: make(map[string]bool)}
}

// Partial reports whether some writes failed while others succeeded.
func (r *IngestionResult) Partial() bool {
	return r.Count > 0 && len(r.Errors) > 0
}

// merge folds one batch's upsert result into the running totals. A backend
// flag, once false, stays false: a single failed batch marks the backend as
// degraded for the whole run.
func (r *IngestionResult) merge(res *storage.UpsertResult) {
	if res == nil {
		return
	}
	for backend, ok := range res.Backends {
		if prev, seen := r.Backends[backend]; seen {
			r.Backends[backend] = prev && ok
		} else {
			r.Backends[backend] = ok
		}
	}
	r.Errors = append(r.Errors, res.Errors...)
}
