// Package storage defines the persistence interface for the retrieval corpus.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/toridasu/internal/models"
)

// ErrMalformedEmbedding is returned when a stored embedding fails to
// deserialize. Full scans skip such chunks instead of returning this error.
var ErrMalformedEmbedding = errors.New("malformed stored embedding")

// ChunkStore defines document and chunk persistence. Implementations must
// support concurrent readers; retrieval runs full scans while embedding
// generation may be writing vectors for other chunks.
type ChunkStore interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// GetDocumentName returns the file name for a document, or an error if
	// the document does not exist.
	GetDocumentName(ctx context.Context, id string) (string, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Chunk operations
	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.Chunk, error)

	// Embedding operations. Embeddings are stored serialized (JSON array of
	// floats); a chunk whose stored embedding fails to deserialize is
	// skipped by ChunksWithEmbeddings, never aborting the scan.
	ChunksWithEmbeddings(ctx context.Context) ([]*models.Chunk, error)
	ChunksMissingEmbeddings(ctx context.Context, limit int) ([]*models.Chunk, error)
	SetChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error
	GetChunkEmbedding(ctx context.Context, chunkID string) ([]float32, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)
	CountEmbeddedChunks(ctx context.Context) (int64, error)

	Close() error
}
