// Package cli provides CLI output helpers for Toridasu.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/toridasu/internal/models"
)

// OutputFormat is the format for retrieval result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteRetrievalResult writes a retrieval result to w in the given format.
func WriteRetrievalResult(w io.Writer, result *models.RetrievalResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		writeRetrievalResultText(w, result)
		return nil
	}
}

func writeRetrievalResultText(w io.Writer, result *models.RetrievalResult) {
	m := result.Metrics
	fmt.Fprintf(w, "\nFound %d chunks in %.1fms (%d scanned, %d vector, %d keyword matches)\n\n",
		m.ResultCount, m.TotalTimeMs, m.ChunksScanned, m.VectorMatches, m.LexicalMatches)
	for _, chunk := range result.Chunks {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Vector: %.4f, Keyword: %.4f)\n",
			chunk.Rank, chunk.Score, chunk.VectorScore, chunk.LexicalScore)
		fmt.Fprintf(w, "Document: %s (chunk %d)\n", chunk.DocumentName, chunk.ChunkIndex)
		fmt.Fprintf(w, "\n%s\n\n", Truncate(chunk.Content, 200))
	}
}

// WriteTrace writes a pipeline trace to w in the given format. Text output
// shows stage timings and the full candidate table including dropped candidates.
func WriteTrace(w io.Writer, trace *models.PipelineTrace, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(trace)
	default:
		writeTraceText(w, trace)
		return nil
	}
}

func writeTraceText(w io.Writer, trace *models.PipelineTrace) {
	fmt.Fprintf(w, "\nQuery: %q (mode %s)\n", trace.Query, trace.Mode)
	fmt.Fprintf(w, "Fusion: %s\n\n", trace.FusionFormula)
	fmt.Fprintln(w, "Stages:")
	for _, st := range trace.Stages {
		fmt.Fprintf(w, "  %-16s %8.2fms\n", st.Stage, st.ElapsedMs)
	}
	fmt.Fprintln(w, "\nCandidates:")
	for _, c := range trace.Candidates {
		marker := " "
		if c.Selected {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %3d. %-36s score=%.4f vec=%.4f kw=%.4f ~%d tokens (%s)\n",
			marker, c.Rank, c.ChunkID, c.Score, c.VectorScore, c.LexicalScore, c.TokenEstimate, c.DocumentName)
	}
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
