// Package embedding provides text embedding via ONNX and caching.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces vector embeddings for text. Repeated calls with identical
// text must produce vectors whose mutual cosine similarity is ~1.0.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// EmbeddingError wraps a backend failure while embedding text. Query
// embedding failure is fatal to a vector-mode retrieval call; callers detect
// it with errors.As.
type EmbeddingError struct {
	Cause error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Cause)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Cause
}
