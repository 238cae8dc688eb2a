// Package lexical provides keyword (BM25-style) search over chunk content.
package lexical

import (
	"context"
	"math"
)

// Index defines lexical search operations over chunk content. Implementations
// must be safe for concurrent readers and must return an empty result set,
// not an error, when queried before any chunk has been indexed.
type Index interface {
	Index(ctx context.Context, chunkID, content string) error
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	Delete(ctx context.Context, chunkID string) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single lexical search hit, ranked best-first by the backend.
type Result struct {
	ChunkID string
	Score   float64
}

// NormalizeScore adapts a backend's raw relevance score to the "higher is
// better, non-negative" convention. Some backends report more-negative-is-
// better; taking the absolute value covers both sign conventions.
func NormalizeScore(raw float64) float64 {
	return math.Abs(raw)
}
