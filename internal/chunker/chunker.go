// Package chunker splits documents into overlapping, bounded-length chunks.
// Lengths and offsets are counted in runes.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/hyperjump/cmassist/internal/models"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits text at the latest natural boundary that fits in a chunk:
// a blank line, then a line break, then a sentence end, then any whitespace.
// Only when none exists in the second half of the window is the text hard-cut.
type Chunker struct {
	size    int
	overlap int
}

// New returns a chunker. overlap must be non-negative and smaller than size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of runes repeated between neighbouring chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks every document in order. Each chunk carries a copy of its
// document's metadata.
func (c *Chunker) Split(docs []models.Document) []models.Chunk {
	var out []models.Chunk
	for _, doc := range docs {
		runes := []rune(doc.Text)
		for i, sp := range c.spans(runes) {
			out = append(out, models.Chunk{
				ID:       uuid.New().String(),
				Text:     string(runes[sp.start:sp.end]),
				Metadata: models.CopyMetadata(doc.Metadata),
				Index:    i,
				Start:    sp.start,
				End:      sp.end,
			})
		}
	}
	return out
}

type span struct{ start, end int }

func (c *Chunker) spans(r []rune) []span {
	if strings.TrimSpace(string(r)) == "" {
		return nil
	}
	n := len(r)
	if n <= c.size {
		return []span{{0, n}}
	}
	var out []span
	start := 0
	for {
		end := start + c.size
		if end >= n {
			out = appendSpan(out, r, start, n)
			return out
		}
		cut := c.boundary(r, start, end)
		out = appendSpan(out, r, start, cut)

		next := cut - c.overlap
		if ws := wordStart(r, next, max(start+1, next-c.overlap/2)); ws >= 0 {
			next = ws
		}
		start = next
	}
}

// appendSpan drops whitespace-only spans, which carry nothing to embed.
func appendSpan(out []span, r []rune, start, end int) []span {
	for _, ch := range r[start:end] {
		if !unicode.IsSpace(ch) {
			return append(out, span{start, end})
		}
	}
	return out
}

// boundary returns the cut position for the chunk starting at start. The cut is
// always past start+overlap so the next chunk starts strictly later.
func (c *Chunker) boundary(r []rune, start, end int) int {
	lo := start + max(c.size/2, c.overlap+1)
	if lo > end {
		lo = end
	}
	for i := end; i > lo; i-- {
		if r[i-1] == '\n' && i-2 >= start && r[i-2] == '\n' {
			return i
		}
	}
	for i := end; i > lo; i-- {
		if r[i-1] == '\n' {
			return i
		}
	}
	for i := end; i > lo; i-- {
		if unicode.IsSpace(r[i-1]) && i-2 >= start && isSentenceEnd(r[i-2]) {
			return i
		}
	}
	for i := end; i > lo; i-- {
		if unicode.IsSpace(r[i-1]) {
			return i
		}
	}
	return end
}

// wordStart walks back from pos to the start of the word it falls in, not past
// floor. It returns -1 when no word start is found.
func wordStart(r []rune, pos, floor int) int {
	for i := pos; i > floor; i-- {
		if unicode.IsSpace(r[i-1]) {
			return i
		}
	}
	return -1
}

func isSentenceEnd(ch rune) bool {
	switch ch {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}
