package indexer

import (
	"context"
	"fmt"

	"github.com/hyperjump/toridasu/internal/embedding"
	"github.com/hyperjump/toridasu/internal/storage"
	"go.uber.org/zap"
)

// ProgressEvent reports embedding worker progress. The final event on the
// channel has Done set; Err is non-nil when the run stopped on a fatal error.
type ProgressEvent struct {
	Processed int
	Failed    int
	Remaining int64
	Done      bool
	Err       error
}

// Worker generates embeddings for stored chunks that do not have one yet.
type Worker struct {
	store     storage.ChunkStore
	embedder  embedding.Embedder
	batchSize int
	logger    *zap.Logger
}

// NewWorker creates an embedding worker. batchSize bounds how many chunks are
// embedded per round trip to the model.
func NewWorker(store storage.ChunkStore, embedder embedding.Embedder, batchSize int, logger *zap.Logger) *Worker {
	if batchSize <= 0 {
		batchSize = 32
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{store: store, embedder: embedder, batchSize: batchSize, logger: logger}
}

// Run embeds all pending chunks in batches, emitting a ProgressEvent after each
// batch. The returned channel is closed after a final event with Done set, so a
// caller can range over it.
func (w *Worker) Run(ctx context.Context) <-chan ProgressEvent {
	events := make(chan ProgressEvent, 1)
	go func() {
		defer close(events)
		processed, failed := 0, 0
		for {
			if err := ctx.Err(); err != nil {
				events <- ProgressEvent{Processed: processed, Failed: failed, Done: true, Err: err}
				return
			}
			chunks, err := w.store.ChunksMissingEmbeddings(ctx, w.batchSize)
			if err != nil {
				events <- ProgressEvent{Processed: processed, Failed: failed, Done: true,
					Err: fmt.Errorf("failed to list pending chunks: %w", err)}
				return
			}
			if len(chunks) == 0 {
				events <- ProgressEvent{Processed: processed, Failed: failed, Done: true}
				return
			}

			texts := make([]string, len(chunks))
			for i, ch := range chunks {
				texts[i] = ch.Content
			}
			vectors, err := w.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				events <- ProgressEvent{Processed: processed, Failed: failed, Done: true,
					Err: &embedding.EmbeddingError{Cause: err}}
				return
			}
			batchProcessed, batchFailed := 0, 0
			for i, ch := range chunks {
				if len(vectors[i]) == 0 {
					batchFailed++
					w.logger.Warn("empty embedding for chunk", zap.String("chunk_id", ch.ID))
					continue
				}
				if err := w.store.SetChunkEmbedding(ctx, ch.ID, vectors[i]); err != nil {
					events <- ProgressEvent{Processed: processed, Failed: failed + batchFailed, Done: true,
						Err: fmt.Errorf("failed to save embedding for %s: %w", ch.ID, err)}
					return
				}
				batchProcessed++
				processed++
			}
			failed += batchFailed
			if batchProcessed == 0 {
				// Failed chunks stay pending and would be re-fetched forever;
				// a batch with no forward progress ends the run.
				events <- ProgressEvent{Processed: processed, Failed: failed, Done: true,
					Err: fmt.Errorf("no progress: all %d chunks in batch produced empty embeddings", batchFailed)}
				return
			}

			total, countErr := w.store.CountChunks(ctx)
			embedded, countErr2 := w.store.CountEmbeddedChunks(ctx)
			remaining := int64(0)
			if countErr == nil && countErr2 == nil {
				remaining = total - embedded
			}
			events <- ProgressEvent{Processed: processed, Failed: failed, Remaining: remaining}
		}
	}()
	return events
}
