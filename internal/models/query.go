package models

import (
	"errors"
	"fmt"
)

// Mode selects which retrieval paths run for a query.
type Mode string

const (
	ModeVector  Mode = "vector"
	ModeKeyword Mode = "keyword"
	ModeHybrid  Mode = "hybrid"
)

// IncludesVector reports whether the mode runs the vector search path.
func (m Mode) IncludesVector() bool {
	return m == ModeVector || m == ModeHybrid
}

// IncludesKeyword reports whether the mode runs the keyword search path.
func (m Mode) IncludesKeyword() bool {
	return m == ModeKeyword || m == ModeHybrid
}

// Validation errors returned by RetrievalQuery.Validate.
var (
	ErrEmptyQuery       = errors.New("query cannot be empty")
	ErrInvalidTopK      = errors.New("top_k must be positive")
	ErrInvalidThreshold = errors.New("min_similarity must be in [0,1]")
	ErrInvalidRRFK      = errors.New("rrf_k must be positive")
	ErrInvalidMode      = errors.New("unknown retrieval mode")
)

// RetrievalQuery represents a retrieval request.
// Zero values for TopK, RRFK, and the weights mean "use the default";
// MinSimilarity zero means no similarity floor.
type RetrievalQuery struct {
	Query         string  `json:"query"`
	TopK          int     `json:"top_k,omitempty"`
	MinSimilarity float64 `json:"min_similarity,omitempty"`
	Mode          Mode    `json:"mode,omitempty"`
	RRFK          float64 `json:"rrf_k,omitempty"`
	// VectorWeight and LexicalWeight scale the RRF contribution of each
	// ranked list. 1.0 each gives standard (unweighted) RRF.
	VectorWeight  float64 `json:"vector_weight,omitempty"`
	LexicalWeight float64 `json:"lexical_weight,omitempty"`
}

// Validate checks the query and fills in defaults. It rejects invalid input
// before any pipeline stage runs.
func (q *RetrievalQuery) Validate() error {
	if q.Query == "" {
		return ErrEmptyQuery
	}
	if q.TopK < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTopK, q.TopK)
	}
	if q.TopK == 0 {
		q.TopK = 5
	}
	if q.MinSimilarity < 0 || q.MinSimilarity > 1 {
		return fmt.Errorf("%w: got %g", ErrInvalidThreshold, q.MinSimilarity)
	}
	if q.RRFK < 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidRRFK, q.RRFK)
	}
	if q.RRFK == 0 {
		q.RRFK = 60.0
	}
	if q.VectorWeight == 0 {
		q.VectorWeight = 1.0
	}
	if q.LexicalWeight == 0 {
		q.LexicalWeight = 1.0
	}
	switch q.Mode {
	case ModeVector, ModeKeyword, ModeHybrid:
	case "":
		q.Mode = ModeHybrid
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, q.Mode)
	}
	return nil
}
