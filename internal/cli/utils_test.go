package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/toridasu/internal/models"
)

func sampleResult() *models.RetrievalResult {
	return &models.RetrievalResult{
		Query: "test query",
		Chunks: []*models.RetrievedChunk{
			{
				ChunkID:      "doc1_0",
				DocumentID:   "doc1",
				DocumentName: "guide.txt",
				Content:      "Some matching content.",
				ChunkIndex:   0,
				VectorScore:  0.91,
				LexicalScore: 1.2,
				Score:        0.032,
				Rank:         1,
			},
		},
		Metrics: models.RetrievalMetrics{
			ResultCount:   1,
			ChunksScanned: 10,
			VectorMatches: 3,
			TotalTimeMs:   4.2,
		},
	}
}

func TestWriteRetrievalResultText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRetrievalResult(&buf, sampleResult(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 chunks", "guide.txt", "Rank: 1", "Some matching content."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteRetrievalResultJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRetrievalResult(&buf, sampleResult(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.RetrievalResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != "test query" || len(decoded.Chunks) != 1 {
		t.Errorf("round trip lost data: %+v", decoded)
	}
}

func TestWriteTraceText(t *testing.T) {
	trace := &models.PipelineTrace{
		Query:         "why",
		Mode:          models.ModeHybrid,
		FusionFormula: "rrf(k=60): score = 1.0/(60+rank_vec+1) + 1.0/(60+rank_kw+1)",
		Stages: []models.StageTiming{
			{Stage: "embed_query", ElapsedMs: 1.5},
			{Stage: "merge_rerank", ElapsedMs: 0.2},
		},
		Candidates: []models.TraceCandidate{
			{Rank: 1, ChunkID: "d_0", DocumentName: "d.txt", Score: 0.03, Selected: true, TokenEstimate: 12},
			{Rank: 2, ChunkID: "d_1", DocumentName: "d.txt", Score: 0.01, Selected: false, TokenEstimate: 8},
		},
	}
	var buf bytes.Buffer
	if err := WriteTrace(&buf, trace, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "embed_query") || !strings.Contains(out, "rrf(k=60)") {
		t.Errorf("trace output incomplete:\n%s", out)
	}
	if !strings.Contains(out, "*   1.") {
		t.Errorf("selected candidate should be starred:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("short string should be unchanged, got %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("hello", 0); got != "hello" {
		t.Errorf("maxLen 0 disables truncation, got %q", got)
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("one two three four", 2); got != "one two..." {
		t.Errorf("got %q", got)
	}
	if got := TruncateWords("one two", 5); got != "one two" {
		t.Errorf("got %q", got)
	}
}
