// Package models defines core data structures for documents, chunks, queries, and retrieval results.
package models

import "time"

// Document represents an ingested source file's cleaned text.
type Document struct {
	ID        string    `json:"id" db:"id"`
	FileName  string    `json:"file_name" db:"file_name"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Chunk is a contiguous span of a document's text, sized for embedding models.
// Embedding is nil until embedding generation has run for the chunk.
type Chunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Content    string    `json:"content" db:"content"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	Embedding  []float32 `json:"-" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DocumentInput is the input for ingesting a document.
type DocumentInput struct {
	ID       string `json:"id,omitempty"`
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}
