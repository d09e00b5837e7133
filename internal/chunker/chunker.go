// Package chunker splits extracted document text into overlapping chunks.
// Pure functions, no side effects - the rest of the pipeline treats this
// as a leaf capability.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1200
	// DefaultOverlap is how many characters consecutive chunks share.
	DefaultOverlap = 200
)

// Splitter cuts text into bounded chunks, preferring paragraph boundaries,
// then line boundaries, then spaces, falling back to hard character cuts.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a Splitter. Non-positive arguments fall back to defaults.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 4
		}
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// separators in preference order; the empty string means a raw cut.
var separators = []string{"\n\n", "\n", " "}

// Split returns the ordered chunks of text. Blank input yields nil.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + s.chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = s.cutPoint(text, start, end)
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(text) {
			break
		}
		next := end - s.overlap
		for next < end && !utf8.RuneStart(text[next]) {
			next++
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// cutPoint finds the best boundary inside (start, limit]. Boundaries in the
// first half of the window are ignored so chunks do not degenerate. A hard
// cut backs up to a rune start so chunks stay valid UTF-8.
func (s *Splitter) cutPoint(text string, start, limit int) int {
	window := text[start:limit]
	min := len(window) / 2
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx > min {
			return start + idx + len(sep)
		}
	}
	cut := limit
	for cut > start && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == start {
		return limit
	}
	return cut
}
