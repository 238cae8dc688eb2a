package models

// Candidate is an ephemeral per-query record pairing a chunk with its partial
// and fused scores. A chunk hit by both search paths is merged into a single
// candidate, never duplicated.
type Candidate struct {
	ChunkID      string  `json:"chunk_id"`
	VectorScore  float64 `json:"vector_score"`
	LexicalScore float64 `json:"lexical_score"`
	Score        float64 `json:"score"`
}

// RetrievedChunk is a final, enriched retrieval hit.
type RetrievedChunk struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Content      string  `json:"content"`
	ChunkIndex   int     `json:"chunk_index"`
	VectorScore  float64 `json:"vector_score"`
	LexicalScore float64 `json:"lexical_score"`
	Score        float64 `json:"score"`
	Rank         int     `json:"rank"`
}

// StageTiming records the elapsed time of one pipeline stage.
type StageTiming struct {
	Stage     string  `json:"stage"`
	ElapsedMs float64 `json:"elapsed_ms"`
}

// RetrievalMetrics aggregates per-query counters, timings, and the
// configuration the query actually ran with.
type RetrievalMetrics struct {
	ChunksScanned  int           `json:"chunks_scanned"`
	VectorMatches  int           `json:"vector_matches"`
	LexicalMatches int           `json:"lexical_matches"`
	ResultCount    int           `json:"result_count"`
	TotalTimeMs    float64       `json:"total_time_ms"`
	Stages         []StageTiming `json:"stages"`
	TopK           int           `json:"top_k"`
	MinSimilarity  float64       `json:"min_similarity"`
	RRFK           float64       `json:"rrf_k"`
	Mode           Mode          `json:"mode"`
}

// RetrievalResult is the final output of one retrieval call: at most TopK
// enriched chunks, best first, plus aggregate metrics.
type RetrievalResult struct {
	Query   string            `json:"query"`
	Chunks  []*RetrievedChunk `json:"chunks"`
	Metrics RetrievalMetrics  `json:"metrics"`
}
