package chunker

import (
	"fmt"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	in := "  a \t b\n\n\n\nc  "
	want := "a b\n\nc"
	if got := Normalize(in); got != want {
		t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
	}
}

func TestNormalize_KeepsBlankLine(t *testing.T) {
	if got := Normalize("a\n\nb"); got != "a\n\nb" {
		t.Errorf("blank line should survive, got %q", got)
	}
}

func TestChunk_Empty(t *testing.T) {
	if got := Chunk("", 100, 10, 5); got != nil {
		t.Errorf("empty text should return nil, got %v", got)
	}
	if got := Chunk("   \n\t ", 100, 10, 5); got != nil {
		t.Errorf("whitespace text should return nil, got %v", got)
	}
}

func TestChunk_SingleShortText(t *testing.T) {
	text := "A short paragraph that fits in one chunk."
	chunks := Chunk(text, 100, 10, 5)
	if len(chunks) != 1 || chunks[0] != text {
		t.Errorf("expected one chunk equal to input, got %v", chunks)
	}
}

func TestChunk_DropsUnderSizedRemainder(t *testing.T) {
	// The whole text is shorter than minChars, so nothing is emitted.
	if got := Chunk("tiny", 100, 10, 50); got != nil {
		t.Errorf("under-sized text should yield no chunks, got %v", got)
	}
}

func TestChunk_ParagraphsMerge(t *testing.T) {
	text := "Para one.\n\nPara two."
	chunks := Chunk(text, 100, 10, 5)
	if len(chunks) != 1 || chunks[0] != text {
		t.Errorf("both paragraphs should fit in one chunk, got %v", chunks)
	}
}

// makeSentences returns n sentences of exactly length chars each, starting
// with an uppercase letter and ending with a period.
func makeSentences(n, length int) []string {
	sentences := make([]string, n)
	for i := range sentences {
		prefix := fmt.Sprintf("Sentence %02d ", i)
		sentences[i] = prefix + strings.Repeat("x", length-len(prefix)-1) + "."
	}
	return sentences
}

func TestChunk_LongParagraphSplitsWithOverlap(t *testing.T) {
	// A single ~2850-char paragraph of uniform 149-char sentences splits
	// into exactly two chunks, the second seeded from the tail of the first.
	sentences := makeSentences(19, 149)
	text := strings.Join(sentences, " ")
	chunks := Chunk(text, 1500, 200, 100)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: lens %v", len(chunks), chunkLens(chunks))
	}
	if len(chunks[0]) > 1500 {
		t.Errorf("first chunk exceeds budget: %d", len(chunks[0]))
	}
	// The second chunk must begin with a suffix of the first, at most 200
	// chars long.
	overlap := longestOverlap(chunks[0], chunks[1], 200)
	if overlap == 0 {
		t.Error("second chunk does not start with a tail of the first")
	}
	if overlap > 200 {
		t.Errorf("overlap %d exceeds budget 200", overlap)
	}
}

func TestChunk_SizeBounds(t *testing.T) {
	paras := make([]string, 20)
	for i := range paras {
		prefix := fmt.Sprintf("Paragraph %02d ", i)
		paras[i] = prefix + strings.Repeat("word ", 57)[:285] + "."
	}
	text := strings.Join(paras, "\n\n")
	chunks := Chunk(text, 1000, 100, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 1000 {
			t.Errorf("chunk %d exceeds maxChars: %d", i, len(c))
		}
		if len(c) < 50 {
			t.Errorf("chunk %d below minChars: %d", i, len(c))
		}
	}
}

func TestChunk_OverlapBetweenAdjacentChunks(t *testing.T) {
	sentences := makeSentences(40, 120)
	text := strings.Join(sentences, " ")
	chunks := Chunk(text, 1000, 150, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 0; i < len(chunks)-1; i++ {
		if longestOverlap(chunks[i], chunks[i+1], 150) == 0 {
			t.Errorf("chunk %d does not share a tail with chunk %d", i, i+1)
		}
	}
}

func TestChunk_NearBudgetSentencesStayWithinBudget(t *testing.T) {
	// Sentences close to maxChars leave almost no room for the seeded
	// overlap tail; the tail must yield rather than push a chunk over budget.
	sentences := makeSentences(4, 1450)
	text := strings.Join(sentences, " ")
	chunks := Chunk(text, 1500, 200, 100)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d: lens %v", len(chunks), chunkLens(chunks))
	}
	for i, c := range chunks {
		if len(c) > 1500 {
			t.Errorf("chunk %d exceeds maxChars: %d", i, len(c))
		}
	}
	joined := strings.Join(chunks, " ")
	for _, s := range sentences {
		if !strings.Contains(joined, s) {
			t.Errorf("sentence missing from chunks: %q", s[:20])
		}
	}
	// Adjacent chunks still share a (shortened) tail.
	for i := 0; i < len(chunks)-1; i++ {
		if longestOverlap(chunks[i], chunks[i+1], 200) == 0 {
			t.Errorf("chunk %d does not share a tail with chunk %d", i, i+1)
		}
	}
}

func TestChunk_CoversAllSentences(t *testing.T) {
	sentences := makeSentences(30, 130)
	text := strings.Join(sentences, " ")
	chunks := Chunk(text, 1200, 150, 50)
	joined := strings.Join(chunks, " ")
	for _, s := range sentences {
		if !strings.Contains(joined, s) {
			t.Errorf("sentence missing from chunks: %q", s[:20])
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Hello world. This is Go! Neat? Yes.")
	want := []string{"Hello world.", "This is Go!", "Neat?", "Yes."}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSentences_NoBoundaryOnLowercase(t *testing.T) {
	got := SplitSentences("This uses i.e. an abbreviation.")
	if len(got) != 1 {
		t.Errorf("lowercase after period should not split, got %v", got)
	}
}

func chunkLens(chunks []string) []int {
	lens := make([]int, len(chunks))
	for i, c := range chunks {
		lens[i] = len(c)
	}
	return lens
}

// longestOverlap returns the longest L <= max such that a suffix of prev of
// length L equals the first L characters of next, or 0 if none exists.
func longestOverlap(prev, next string, max int) int {
	if max > len(next) {
		max = len(next)
	}
	for l := max; l > 0; l-- {
		if strings.HasSuffix(prev, next[:l]) {
			return l
		}
	}
	return 0
}
