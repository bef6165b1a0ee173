// Package ingest provides the batch-processing core of inflow.
//
// The Engine drives a source-specific Generator's batches through
// validation, enrichment, fingerprint deduplication and storage upserts.
// The Pipeline routes a source-type key to its registered Processor and
// injects shared enrichment/validation/error/progress hooks.
//
// Batch production is pull-based and single-pass: a BatchStream yields
// batches until io.EOF and is not restartable. Batch-to-batch progression
// is synchronous, which gives natural backpressure: the next batch is
// never read from a source while the current one is mid-upsert.
package ingest
