// Package mock provides a test double implementation of ai.Embedder.
//
// The mock allows tests to run without an external embedding service and
// enables controlled, deterministic behavior:
//
//	// Default deterministic behavior
//	embedder := mock.NewEmbedder()
//	vector, err := embedder.EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("service unavailable")
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
package mock
