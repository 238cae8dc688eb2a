// Package retrieval provides hybrid retrieval: vector and keyword search
// fused with Reciprocal Rank Fusion.
package retrieval

import (
	"fmt"
	"sort"

	"github.com/hyperjump/toridasu/internal/models"
)

// ScoredChunk pairs a chunk ID with a raw score from one search path.
type ScoredChunk struct {
	ChunkID string
	Score   float64
}

// Fuse merges the vector and lexical ranked lists into one candidate set
// using Reciprocal Rank Fusion. Each list is sorted descending by raw score;
// the item at 0-based rank r contributes weight * 1/(k + r + 1) to its
// chunk's fused score. A chunk present in both lists accumulates both
// contributions, so agreement between the two search paths ranks it above
// single-list matches. An empty list contributes nothing, which is how
// vector-only and keyword-only modes flow through unchanged.
func Fuse(vectorRanked, lexicalRanked []ScoredChunk, k, vectorWeight, lexicalWeight float64) map[string]*models.Candidate {
	candidates := make(map[string]*models.Candidate)

	sortDescending(vectorRanked)
	for rank, sc := range vectorRanked {
		c, ok := candidates[sc.ChunkID]
		if !ok {
			c = &models.Candidate{ChunkID: sc.ChunkID}
			candidates[sc.ChunkID] = c
		}
		c.VectorScore = sc.Score
		c.Score += vectorWeight / (k + float64(rank) + 1)
	}

	sortDescending(lexicalRanked)
	for rank, sc := range lexicalRanked {
		c, ok := candidates[sc.ChunkID]
		if !ok {
			c = &models.Candidate{ChunkID: sc.ChunkID}
			candidates[sc.ChunkID] = c
		}
		c.LexicalScore = sc.Score
		c.Score += lexicalWeight / (k + float64(rank) + 1)
	}

	return candidates
}

// sortDescending orders a ranked list by raw score descending, breaking ties
// by chunk ID ascending so rank positions are deterministic.
func sortDescending(list []ScoredChunk) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].ChunkID < list[j].ChunkID
	})
}

// RankCandidates orders fused candidates by fused score descending, breaking
// ties by chunk ID ascending. The tie-break keeps identical queries returning
// identical orderings.
func RankCandidates(candidates map[string]*models.Candidate) []*models.Candidate {
	ranked := make([]*models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ChunkID < ranked[j].ChunkID
	})
	return ranked
}

// FusionFormula describes the fusion function for diagnostics.
func FusionFormula(k, vectorWeight, lexicalWeight float64) string {
	return fmt.Sprintf("rrf(k=%g): score = vector %g/(k+rank+1) + lexical %g/(k+rank+1)", k, vectorWeight, lexicalWeight)
}
