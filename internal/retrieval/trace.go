package retrieval

import (
	"context"
	"time"

	"github.com/hyperjump/toridasu/internal/embedding"
	"github.com/hyperjump/toridasu/internal/models"
)

// buildTrace assembles the diagnostic flight recorder for one query: every
// fused candidate in rank order (not just the surviving top-K), with a
// Selected flag for the ones that made the cut, plus the stage timings and
// the fusion formula. Selection is taken from the returned hits, so a
// candidate whose chunk vanished before enrichment is never marked selected.
// The trace is built from the engine's outputs and never feeds back into
// ranking.
func (e *Engine) buildTrace(ctx context.Context, rec *stageRecorder, q *models.RetrievalQuery, ranked []*models.Candidate, hits []*models.RetrievedChunk, chunkByID map[string]*models.Chunk) *models.PipelineTrace {
	trace := &models.PipelineTrace{
		Query:         q.Query,
		Mode:          q.Mode,
		FusionFormula: FusionFormula(q.RRFK, q.VectorWeight, q.LexicalWeight),
		CreatedAt:     time.Now(),
	}
	_ = rec.run(stageBuildTrace, func() error {
		selected := make(map[string]bool, len(hits))
		for _, h := range hits {
			selected[h.ChunkID] = true
		}
		trace.Candidates = make([]models.TraceCandidate, 0, len(ranked))
		for i, c := range ranked {
			tc := models.TraceCandidate{
				Rank:         i + 1,
				ChunkID:      c.ChunkID,
				DocumentName: "Unknown",
				VectorScore:  c.VectorScore,
				LexicalScore: c.LexicalScore,
				Score:        c.Score,
				Selected:     selected[c.ChunkID],
			}
			ch, ok := chunkByID[c.ChunkID]
			if !ok {
				if loaded, err := e.store.GetChunk(ctx, c.ChunkID); err == nil {
					ch = loaded
				}
			}
			if ch != nil {
				tc.ChunkIndex = ch.ChunkIndex
				tc.TokenEstimate = embedding.EstimateTokens(ch.Content)
				if name, err := e.store.GetDocumentName(ctx, ch.DocumentID); err == nil {
					tc.DocumentName = name
				}
			}
			trace.Candidates = append(trace.Candidates, tc)
		}
		return nil
	})
	trace.Stages = rec.stages
	return trace
}
