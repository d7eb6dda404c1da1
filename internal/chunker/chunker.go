// Package chunker splits extracted document text into overlapping passages
// sized for embedding and context-window budgets. Text is normalized before
// boundary search so chunk boundaries are stable across repeated runs, and
// splits prefer the coarsest natural boundary available: paragraph break,
// then sentence end, then word boundary, then a hard cut.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/guidechat-ai/guidechat/internal/rag"
)

// Default chunk geometry, tuned for ~250-token passages with enough overlap
// that a sentence straddling a boundary appears whole in one of the chunks.
const (
	// DefaultSize is the maximum passage length in characters.
	DefaultSize = 1000
	// DefaultOverlap is the number of characters shared between consecutive
	// passages.
	DefaultOverlap = 200
)

// Normalization patterns, applied in order.
var (
	// crlfRE collapses line-ending variants to a single LF.
	crlfRE = regexp.MustCompile(`\r\n?`)
	// blankRunRE collapses runs of three or more newlines to one blank line.
	blankRunRE = regexp.MustCompile(`\n{3,}`)
	// spaceRunRE collapses runs of non-newline whitespace to a single space.
	spaceRunRE = regexp.MustCompile(`[^\S\n]+`)
)

// Chunker splits normalized text into overlapping passages.
type Chunker struct {
	// size is the maximum passage length in characters.
	size int
	// overlap is the character overlap between consecutive passages.
	overlap int
}

// New constructs a Chunker. Non-positive size or overlap fall back to the
// defaults; an overlap at or above size is reduced so every chunk makes
// forward progress.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= size {
		overlap = size / 5
	}
	return &Chunker{size: size, overlap: overlap}
}

// Normalize canonicalizes whitespace: CRLF/CR become LF, runs of blank lines
// collapse to a single blank line, runs of spaces and tabs collapse to one
// space, and the result is trimmed. Deterministic and idempotent, so chunk
// boundaries are stable across repeated runs on identical input.
func Normalize(raw string) string {
	text := crlfRE.ReplaceAllString(raw, "\n")
	text = blankRunRE.ReplaceAllString(text, "\n\n")
	text = spaceRunRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Chunk normalizes raw and splits it into ordered overlapping passages.
// Passage order is significant: the index becomes part of chunk metadata.
// Returns rag.ErrNoContent when the input is empty or whitespace-only.
func (c *Chunker) Chunk(raw string) ([]string, error) {
	text := Normalize(raw)
	if text == "" {
		return nil, fmt.Errorf("%w", rag.ErrNoContent)
	}

	var passages []string
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			passages = append(passages, strings.TrimSpace(text[start:]))
			break
		}

		end = c.breakpoint(text, start, end)
		passages = append(passages, strings.TrimSpace(text[start:end]))

		next := end - c.overlap
		if next <= start {
			// Overlap would revisit the same span; step past it instead.
			next = end
		}
		start = next
	}

	return passages, nil
}

// breakpoint picks the end of the chunk starting at start, searching the
// window [start, limit] for the coarsest available natural boundary:
// paragraph break, then sentence end, then word boundary. When no boundary
// exists in the window the chunk is cut hard at limit.
func (c *Chunker) breakpoint(text string, start, limit int) int {
	window := text[start:limit]

	if i := strings.LastIndex(window, "\n\n"); i > 0 {
		return start + i
	}
	if i := strings.LastIndex(window, ". "); i > 0 {
		return start + i + 1 // keep the period with the sentence
	}
	if i := strings.LastIndexAny(window, " \n"); i > 0 {
		return start + i
	}
	return limit
}
