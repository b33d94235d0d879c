package domain

import (
	"context"
)

// DocumentIndex is the vector collection that belongs to one document.
type DocumentIndex interface {
	// Add embeds and stores the chunks keyed by their composite ID.
	// An empty slice is a no-op.
	Add(ctx context.Context, chunks []Chunk) error

	// Query embeds text and returns up to k chunks ordered by ascending cosine
	// distance. Equal distances keep insertion order (ascending Ordinal).
	Query(ctx context.Context, text string, k int) ([]RetrievedContext, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// IndexStore owns the per-document namespaces.
type IndexStore interface {
	// CreateOrOpen returns the index for documentID, creating it when missing.
	// Repeated calls with the same id return the same logical collection.
	CreateOrOpen(ctx context.Context, documentID string) (DocumentIndex, error)

	// Open returns the index for documentID without creating it.
	// The boolean is false when the document was never ingested.
	Open(ctx context.Context, documentID string) (DocumentIndex, bool, error)

	// Drop removes the namespace and everything stored in it.
	Drop(ctx context.Context, documentID string) error
}

// TransactionManager defines the interface for handling database transactions.
type TransactionManager interface {
	// RunInTx executes the given function within a transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
