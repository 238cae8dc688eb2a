package retrieval

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/toridasu/internal/embedding"
	"github.com/hyperjump/toridasu/internal/lexical"
	"github.com/hyperjump/toridasu/internal/models"
	"github.com/hyperjump/toridasu/internal/storage"
	"github.com/hyperjump/toridasu/internal/vector"
)

// Pipeline stage names, recorded in actual execution order.
const (
	stageEmbedQuery    = "embed_query"
	stageLoadChunks    = "load_chunks"
	stageVectorSearch  = "vector_search"
	stageKeywordSearch = "keyword_search"
	stageMergeRerank   = "merge_rerank"
	stageBuildTrace    = "build_trace"
)

// lexicalCandidateFactor is the headroom multiplier for lexical candidates:
// fusion may re-rank them against vector results, so more than TopK are
// fetched.
const lexicalCandidateFactor = 2

// Engine runs the hybrid retrieval pipeline: embed query, scan embedded
// chunks, keyword search, RRF fusion, truncation, enrichment. It holds no
// per-query state and is safe for concurrent use when its collaborators
// support concurrent reads.
type Engine struct {
	store    storage.ChunkStore
	embedder embedding.Embedder
	lexical  lexical.Index
	logger   *zap.Logger
}

// NewEngine creates a retrieval engine. logger may be nil.
func NewEngine(store storage.ChunkStore, embedder embedding.Embedder, lex lexical.Index, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, embedder: embedder, lexical: lex, logger: logger}
}

// Retrieve runs the pipeline and returns the top-K enriched chunks.
func (e *Engine) Retrieve(ctx context.Context, q *models.RetrievalQuery) (*models.RetrievalResult, error) {
	result, _, err := e.retrieve(ctx, q, false)
	return result, err
}

// RetrieveWithTrace runs the same pipeline and additionally records the full
// diagnostic trace: every candidate considered and every stage timing. The
// final ranking is identical to Retrieve.
func (e *Engine) RetrieveWithTrace(ctx context.Context, q *models.RetrievalQuery) (*models.RetrievalResult, *models.PipelineTrace, error) {
	return e.retrieve(ctx, q, true)
}

func (e *Engine) retrieve(ctx context.Context, q *models.RetrievalQuery, traced bool) (*models.RetrievalResult, *models.PipelineTrace, error) {
	if err := q.Validate(); err != nil {
		return nil, nil, err
	}
	start := time.Now()
	rec := &stageRecorder{}

	// Embedding failure removes the vector contribution; the call fails only
	// when no other search path remains. Vector-only mode therefore fails
	// hard, while hybrid degrades to keyword-only.
	var queryEmbedding []float32
	if q.Mode.IncludesVector() && e.embedder != nil {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		err := rec.run(stageEmbedQuery, func() error {
			emb, err := e.embedder.Embed(ctx, q.Query)
			if err != nil {
				return err
			}
			queryEmbedding = emb
			return nil
		})
		if err != nil {
			if !q.Mode.IncludesKeyword() {
				return nil, nil, &embedding.EmbeddingError{Cause: err}
			}
			e.logger.Warn("query embedding failed, continuing with keyword search only",
				zap.String("query", q.Query), zap.Error(err))
			queryEmbedding = nil
		}
	}

	var (
		chunkByID    = make(map[string]*models.Chunk)
		scannedCount int
		vectorRanked []ScoredChunk
	)
	// An empty query embedding ("no embedder configured") is a degraded
	// state, not an error: vector search simply contributes nothing.
	if len(queryEmbedding) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		var scanned []*models.Chunk
		err := rec.run(stageLoadChunks, func() error {
			chunks, err := e.store.ChunksWithEmbeddings(ctx)
			if err != nil {
				return err
			}
			scanned = chunks
			return nil
		})
		if err != nil {
			e.logger.Warn("chunk scan failed, continuing without vector results", zap.Error(err))
		} else {
			scannedCount = len(scanned)
			_ = rec.run(stageVectorSearch, func() error {
				for _, ch := range scanned {
					chunkByID[ch.ID] = ch
					score := vector.CosineSimilarity(queryEmbedding, ch.Embedding)
					// The similarity floor is applied before fusion: a
					// chunk below it never enters the ranked list.
					if score >= q.MinSimilarity {
						vectorRanked = append(vectorRanked, ScoredChunk{ChunkID: ch.ID, Score: score})
					}
				}
				return nil
			})
		}
	}

	var lexicalRanked []ScoredChunk
	if q.Mode.IncludesKeyword() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		_ = rec.run(stageKeywordSearch, func() error {
			results, err := e.lexical.Search(ctx, q.Query, q.TopK*lexicalCandidateFactor)
			if err != nil {
				// Keyword search is a best-effort enhancement; a backend
				// failure degrades to zero lexical candidates.
				e.logger.Warn("keyword search failed, continuing without lexical results",
					zap.String("query", q.Query), zap.Error(err))
				return nil
			}
			for _, r := range results {
				lexicalRanked = append(lexicalRanked, ScoredChunk{ChunkID: r.ChunkID, Score: lexical.NormalizeScore(r.Score)})
			}
			return nil
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		ranked []*models.Candidate
		hits   []*models.RetrievedChunk
	)
	_ = rec.run(stageMergeRerank, func() error {
		fused := Fuse(vectorRanked, lexicalRanked, q.RRFK, q.VectorWeight, q.LexicalWeight)
		ranked = RankCandidates(fused)
		top := ranked
		if len(top) > q.TopK {
			top = top[:q.TopK]
		}
		hits = make([]*models.RetrievedChunk, 0, len(top))
		for _, c := range top {
			hit := e.enrich(ctx, c, chunkByID)
			if hit == nil {
				continue
			}
			hit.Rank = len(hits) + 1
			hits = append(hits, hit)
		}
		return nil
	})

	var trace *models.PipelineTrace
	if traced {
		trace = e.buildTrace(ctx, rec, q, ranked, hits, chunkByID)
	}

	result := &models.RetrievalResult{
		Query:  q.Query,
		Chunks: hits,
		Metrics: models.RetrievalMetrics{
			ChunksScanned:  scannedCount,
			VectorMatches:  len(vectorRanked),
			LexicalMatches: len(lexicalRanked),
			ResultCount:    len(hits),
			TotalTimeMs:    float64(time.Since(start).Microseconds()) / 1000.0,
			Stages:         rec.stages,
			TopK:           q.TopK,
			MinSimilarity:  q.MinSimilarity,
			RRFK:           q.RRFK,
			Mode:           q.Mode,
		},
	}
	return result, trace, nil
}

// enrich resolves a candidate's chunk content and source document name.
// Chunks already loaded by the vector scan are reused; keyword-only hits are
// fetched from the store. A chunk that disappeared between search and
// enrichment is dropped; a failed document-name lookup yields "Unknown".
func (e *Engine) enrich(ctx context.Context, c *models.Candidate, chunkByID map[string]*models.Chunk) *models.RetrievedChunk {
	ch, ok := chunkByID[c.ChunkID]
	if !ok {
		loaded, err := e.store.GetChunk(ctx, c.ChunkID)
		if err != nil {
			e.logger.Debug("chunk vanished before enrichment", zap.String("chunk_id", c.ChunkID), zap.Error(err))
			return nil
		}
		ch = loaded
		chunkByID[c.ChunkID] = ch
	}
	name, err := e.store.GetDocumentName(ctx, ch.DocumentID)
	if err != nil {
		name = "Unknown"
	}
	return &models.RetrievedChunk{
		ChunkID:      ch.ID,
		DocumentID:   ch.DocumentID,
		DocumentName: name,
		Content:      ch.Content,
		ChunkIndex:   ch.ChunkIndex,
		VectorScore:  c.VectorScore,
		LexicalScore: c.LexicalScore,
		Score:        c.Score,
	}
}

// stageRecorder captures per-stage elapsed time in execution order.
type stageRecorder struct {
	stages []models.StageTiming
}

func (r *stageRecorder) run(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.stages = append(r.stages, models.StageTiming{
		Stage:     name,
		ElapsedMs: float64(time.Since(start).Microseconds()) / 1000.0,
	})
	return err
}
