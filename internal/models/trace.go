package models

import "time"

// TraceCandidate is one candidate considered during fusion, recorded before
// top-K truncation. Selected marks whether it made the final cut.
type TraceCandidate struct {
	Rank          int     `json:"rank"`
	ChunkID       string  `json:"chunk_id"`
	DocumentName  string  `json:"document_name"`
	ChunkIndex    int     `json:"chunk_index"`
	VectorScore   float64 `json:"vector_score"`
	LexicalScore  float64 `json:"lexical_score"`
	Score         float64 `json:"score"`
	TokenEstimate int     `json:"token_estimate"`
	Selected      bool    `json:"selected"`
}

// PipelineTrace is the per-query flight recorder: every candidate considered,
// stage timings in actual execution order, and the fusion formula used.
// It is a diagnostic artifact only; nothing reads it back into the pipeline.
type PipelineTrace struct {
	Query         string           `json:"query"`
	Mode          Mode             `json:"mode"`
	Stages        []StageTiming    `json:"stages"`
	Candidates    []TraceCandidate `json:"candidates"`
	FusionFormula string           `json:"fusion_formula"`
	CreatedAt     time.Time        `json:"created_at"`
}
