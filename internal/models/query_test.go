package models

import (
	"errors"
	"testing"
)

func TestRetrievalQuery_ValidateDefaults(t *testing.T) {
	q := &RetrievalQuery{Query: "hello"}
	if err := q.Validate(); err != nil {
		t.Fatal(err)
	}
	if q.TopK != 5 {
		t.Errorf("TopK default should be 5, got %d", q.TopK)
	}
	if q.RRFK != 60.0 {
		t.Errorf("RRFK default should be 60, got %g", q.RRFK)
	}
	if q.Mode != ModeHybrid {
		t.Errorf("Mode default should be hybrid, got %s", q.Mode)
	}
	if q.VectorWeight != 1.0 || q.LexicalWeight != 1.0 {
		t.Errorf("weights should default to 1.0, got %g/%g", q.VectorWeight, q.LexicalWeight)
	}
}

func TestRetrievalQuery_ValidateEmpty(t *testing.T) {
	q := &RetrievalQuery{}
	if err := q.Validate(); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestRetrievalQuery_ValidateNegativeTopK(t *testing.T) {
	q := &RetrievalQuery{Query: "q", TopK: -1}
	if err := q.Validate(); !errors.Is(err, ErrInvalidTopK) {
		t.Errorf("expected ErrInvalidTopK, got %v", err)
	}
}

func TestRetrievalQuery_ValidateThreshold(t *testing.T) {
	for _, bad := range []float64{-0.1, 1.1} {
		q := &RetrievalQuery{Query: "q", MinSimilarity: bad}
		if err := q.Validate(); !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("min_similarity=%g: expected ErrInvalidThreshold, got %v", bad, err)
		}
	}
	q := &RetrievalQuery{Query: "q", MinSimilarity: 0.7}
	if err := q.Validate(); err != nil {
		t.Errorf("0.7 should be valid, got %v", err)
	}
}

func TestRetrievalQuery_ValidateUnknownMode(t *testing.T) {
	q := &RetrievalQuery{Query: "q", Mode: "fulltext"}
	if err := q.Validate(); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestMode_Includes(t *testing.T) {
	if !ModeHybrid.IncludesVector() || !ModeHybrid.IncludesKeyword() {
		t.Error("hybrid should include both paths")
	}
	if !ModeVector.IncludesVector() || ModeVector.IncludesKeyword() {
		t.Error("vector mode should include only the vector path")
	}
	if ModeKeyword.IncludesVector() || !ModeKeyword.IncludesKeyword() {
		t.Error("keyword mode should include only the keyword path")
	}
}
