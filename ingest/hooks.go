package ingest

import "github.com/poiesic/inflow/core"

// ValidateFunc reports whether a record should be ingested. A false return
// drops the record silently; a drop is not an error.
type ValidateFunc func(core.Record) bool

// EnrichFunc transforms a record before it is fingerprinted and stored.
type EnrichFunc func(core.Record) core.Record

// ProgressFunc is invoked after each upserted batch with the running total
// of ingested records and the size of the batch just written.
type ProgressFunc func(totalIngested, batchSize int)

// ErrorHandler receives processor failures routed through the Pipeline.
// When a handler is registered the failure is considered handled and is not
// returned to the Ingest caller.
type ErrorHandler func(err error, ectx ErrorContext)

// ErrorContext identifies the ingest call that failed.
type ErrorContext struct {
	SourceType string
	Source     string
}

// Options carries the per-call hooks for one ingest run. All fields are
// optional. Hooks are stateless from the framework's perspective and are
// owned by the caller for the duration of the call.
type Options struct {
	Validate ValidateFunc
	Enrich   EnrichFunc
	Progress ProgressFunc
}
