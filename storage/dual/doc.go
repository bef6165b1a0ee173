// Package dual implements the dual-backend storage adapter: each batch is
// enriched with embeddings through a bounded worker pool and written to a
// structured document store and a vector store, tolerating partial failure
// of either backend.
package dual
