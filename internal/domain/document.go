package domain

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Document is the result of a successful ingestion. It is immutable once created.
type Document struct {
	ID     string
	Pages  int
	Chunks int
}

// Page is one PDF page's normalized text. Number is the original 1-based
// position in the file; pages without text are dropped, never renumbered.
type Page struct {
	Number int
	Text   string
}

// Chunk is a contiguous character window of a page.
type Chunk struct {
	DocumentID string
	Page       int
	Position   int // index of the window within its page
	Ordinal    int // document-wide insertion order
	Text       string
}

// ID returns the composite chunk identity {document_id}_{page}_{position}.
func (c Chunk) ID() string {
	return ChunkID(c.DocumentID, c.Page, c.Position)
}

// ChunkID renders the composite identity used as the vector-store key.
func ChunkID(documentID string, page, position int) string {
	return fmt.Sprintf("%s_%d_%d", documentID, page, position)
}

// RetrievedContext is a chunk returned by a similarity query.
type RetrievedContext struct {
	Chunk    Chunk
	Distance float64 // cosine distance, lower is closer
}

// Citation is page-level evidence attached to an answer.
type Citation struct {
	Page    int
	Snippet string
}

// NewDocumentID mints a random 128-bit identifier as 32 lowercase hex characters.
func NewDocumentID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// NormalizeWhitespace collapses every whitespace run (newlines included) into a
// single space and trims both ends.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
