package dual

import (
	"errors"
	"fmt"

	"github.com/poiesic/inflow/storage"
)

var (
	// ErrStructuredStoreRequired is returned when a structured store is not provided.
	ErrStructuredStoreRequired = errors.New("structured store required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)

// TotalFailureError reports that every backend rejected a batch. It carries
// the collected per-backend and per-record errors for reconciliation.
type TotalFailureError struct {
	Errors []storage.WriteError
}

func (e *TotalFailureError) Error() string {
	return fmt.Sprintf("%d write errors", len(e.Errors))
}
