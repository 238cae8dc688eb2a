// Package indexer provides document ingestion into storage and the keyword index,
// plus background embedding generation.
package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperjump/toridasu/internal/chunker"
	"github.com/hyperjump/toridasu/internal/config"
	"github.com/hyperjump/toridasu/internal/lexical"
	"github.com/hyperjump/toridasu/internal/models"
	"github.com/hyperjump/toridasu/internal/storage"
	"go.uber.org/zap"
)

// ErrEmptyDocument is returned when a document normalizes to nothing ingestable.
var ErrEmptyDocument = errors.New("document content is empty after normalization")

// Indexer ingests documents: normalize, chunk, store, and index for keyword search.
// Embeddings are generated separately by the Worker so ingestion stays fast.
type Indexer struct {
	store    storage.ChunkStore
	lexical  lexical.Index
	chunking config.ChunkingConfig
	logger   *zap.Logger
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(store storage.ChunkStore, lex lexical.Index, chunking config.ChunkingConfig, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		store:    store,
		lexical:  lex,
		chunking: chunking,
		logger:   logger,
	}
}

// IngestDocument stores a document, chunks its content, and indexes every chunk
// for keyword search. Returns the stored document. Embeddings are left empty;
// run the Worker to fill them.
func (idx *Indexer) IngestDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error) {
	content := chunker.Normalize(input.Content)
	if content == "" {
		return nil, ErrEmptyDocument
	}
	doc := &models.Document{
		ID:       input.ID,
		FileName: input.FileName,
		Content:  content,
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if err := idx.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	pieces := chunker.Chunk(content, idx.chunking.MaxChars, idx.chunking.OverlapChars, idx.chunking.MinChars)
	if len(pieces) == 0 {
		pieces = []string{content}
	}
	chunks := make([]*models.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &models.Chunk{
			ID:         fmt.Sprintf("%s_%d", doc.ID, i),
			DocumentID: doc.ID,
			Content:    piece,
			ChunkIndex: i,
		}
	}
	if err := idx.store.BatchCreateChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}
	for _, ch := range chunks {
		if err := idx.lexical.Index(ctx, ch.ID, ch.Content); err != nil {
			return nil, fmt.Errorf("failed to index chunk %s: %w", ch.ID, err)
		}
	}
	idx.logger.Debug("document ingested",
		zap.String("doc_id", doc.ID),
		zap.String("file_name", doc.FileName),
		zap.Int("chunks", len(chunks)))
	return doc, nil
}

// DeleteDocument removes a document, its chunks, and their keyword index entries.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	chunks, err := idx.store.GetChunksByDocumentID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}
	for _, ch := range chunks {
		if err := idx.lexical.Delete(ctx, ch.ID); err != nil {
			return fmt.Errorf("failed to delete chunk %s from keyword index: %w", ch.ID, err)
		}
	}
	// Chunks cascade with the document row.
	if err := idx.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	idx.logger.Debug("document deleted", zap.String("doc_id", id), zap.Int("chunks", len(chunks)))
	return nil
}
