// Package chunker splits normalized document text into overlapping,
// sentence-boundary-aware chunks sized for embedding models.
package chunker

import (
	"regexp"
	"strings"
)

var (
	spaceRun   = regexp.MustCompile(`[ \t]+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
	// Heuristic sentence boundary: terminal punctuation followed by
	// whitespace and an uppercase letter. Locale-sensitive for non-Latin
	// scripts.
	sentenceBoundary = regexp.MustCompile(`[.!?][ \t\n]+[A-Z]`)
)

// Normalize collapses runs of spaces and tabs to a single space, collapses
// three or more newlines to one blank line, and trims the result. Chunk
// assumes its input has been normalized.
func Normalize(text string) string {
	text = spaceRun.ReplaceAllString(text, " ")
	text = newlineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Chunk splits normalized text into chunks of at most maxChars characters,
// seeding each chunk after the first with up to overlapChars characters from
// the tail of the previous one. Paragraphs (blank-line separated) are
// accumulated greedily; a paragraph longer than maxChars is accumulated
// sentence by sentence instead. A trailing remainder shorter than minChars is
// dropped rather than emitted. Empty or whitespace-only input yields nil.
func Chunk(text string, maxChars, overlapChars, minChars int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	acc := &accumulator{max: maxChars, overlap: overlapChars, min: minChars}
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= maxChars {
			acc.add(para, "\n\n")
			continue
		}
		for _, sentence := range SplitSentences(para) {
			if len(sentence) > maxChars {
				for _, piece := range hardSplit(sentence, maxChars) {
					acc.add(piece, " ")
				}
				continue
			}
			acc.add(sentence, " ")
		}
	}
	return acc.finish()
}

// SplitSentences splits a paragraph at heuristic sentence boundaries. The
// terminal punctuation stays with the preceding sentence.
func SplitSentences(para string) []string {
	locs := sentenceBoundary.FindAllStringIndex(para, -1)
	if len(locs) == 0 {
		return []string{para}
	}
	sentences := make([]string, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		sentences = append(sentences, strings.TrimSpace(para[start:loc[0]+1]))
		// The match ends one byte past the uppercase letter that starts
		// the next sentence.
		start = loc[1] - 1
	}
	if tail := strings.TrimSpace(para[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func hardSplit(s string, max int) []string {
	var pieces []string
	for len(s) > max {
		pieces = append(pieces, s[:max])
		s = s[max:]
	}
	if s != "" {
		pieces = append(pieces, s)
	}
	return pieces
}

// accumulator builds chunks from pieces, flushing on overflow and carrying an
// overlap tail into the next buffer.
type accumulator struct {
	max, overlap, min int

	buf    string
	fresh  bool // buf holds content beyond the seeded overlap tail
	chunks []string
}

func (a *accumulator) add(piece, sep string) {
	if piece == "" {
		return
	}
	if a.fresh && len(a.buf)+len(sep)+len(piece) > a.max && len(a.buf) >= a.min {
		a.flush()
	}
	if !a.fresh && a.buf != "" {
		// The overlap is "up to" overlapChars: the seeded tail yields to the
		// incoming piece so the chunk never exceeds maxChars.
		room := a.max - len(piece) - len(sep)
		if room <= 0 {
			a.buf = ""
		} else if len(a.buf) > room {
			trimmed := a.buf[len(a.buf)-room:]
			if i := strings.IndexByte(trimmed, ' '); i >= 0 && i+1 < len(trimmed) {
				trimmed = trimmed[i+1:]
			}
			a.buf = trimmed
		}
	}
	if a.buf == "" {
		a.buf = piece
	} else {
		a.buf += sep + piece
	}
	a.fresh = true
}

func (a *accumulator) flush() {
	a.chunks = append(a.chunks, a.buf)
	a.buf = overlapTail(a.buf, a.overlap)
	a.fresh = false
}

// finish emits the remaining buffer as the final chunk only if it holds new
// content of at least min characters; an under-sized remainder is dropped.
func (a *accumulator) finish() []string {
	if a.fresh && len(a.buf) >= a.min {
		a.chunks = append(a.chunks, a.buf)
	}
	return a.chunks
}

// overlapTail returns up to overlap characters from the end of chunk,
// preferring to start just after the last sentence boundary in that window
// that is at least 20 characters from the end (so the overlap is not a
// degenerate near-empty fragment).
func overlapTail(chunk string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	window := chunk
	if len(chunk) > overlap {
		window = chunk[len(chunk)-overlap:]
	}
	cut := -1
	for i, r := range window {
		if r != '.' && r != '!' && r != '?' && r != '\n' {
			continue
		}
		if len(window)-1-i >= 20 {
			cut = i
		}
	}
	if cut >= 0 {
		return strings.TrimLeft(window[cut+1:], " \n")
	}
	return window
}
