package domain

import (
	"fmt"
)

const (
	// DefaultChunkSize is the default window length in characters.
	DefaultChunkSize = 900
	// DefaultChunkOverlap is the default number of characters shared by
	// consecutive windows of the same page.
	DefaultChunkOverlap = 150
)

// Span is a half-open [Start, End) range of character offsets.
type Span struct {
	Start int
	End   int
}

// Len returns the number of characters covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Chunker splits page text into overlapping fixed-size character windows.
type Chunker interface {
	// Spans returns the windows covering a text of n characters.
	Spans(n int) []Span
	// Split returns the text of every window, in order.
	Split(text string) []string
	Size() int
	Overlap() int
}

type windowChunker struct {
	size    int
	overlap int
}

// NewChunker creates a character-window chunker. A size that does not exceed
// the overlap can never make progress and is rejected with ErrInvalidChunkConfig.
func NewChunker(size, overlap int) (Chunker, error) {
	if size <= 0 || overlap < 0 {
		return nil, fmt.Errorf("%w: chunk_size=%d overlap=%d", ErrInvalidChunkConfig, size, overlap)
	}
	if size <= overlap {
		return nil, fmt.Errorf("%w: chunk_size (%d) must be > overlap (%d)", ErrInvalidChunkConfig, size, overlap)
	}
	return &windowChunker{size: size, overlap: overlap}, nil
}

func (c *windowChunker) Size() int    { return c.size }
func (c *windowChunker) Overlap() int { return c.overlap }

// Spans walks the text from offset 0. Each window ends at min(start+size, n);
// the next one starts overlap characters before that end. The walk stops after
// the window that reaches n, so the final window may be shorter than size.
func (c *windowChunker) Spans(n int) []Span {
	if n <= 0 {
		return nil
	}

	spans := make([]Span, 0, n/(c.size-c.overlap)+1)
	start := 0
	for {
		end := min(start+c.size, n)
		spans = append(spans, Span{Start: start, End: end})
		if end == n {
			break
		}
		start = max(end-c.overlap, 0)
	}
	return spans
}

// Split works on runes, not bytes, so a window never cuts a multi-byte character.
func (c *windowChunker) Split(text string) []string {
	runes := []rune(text)
	spans := c.Spans(len(runes))
	if len(spans) == 0 {
		return nil
	}

	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = string(runes[s.Start:s.End])
	}
	return out
}
