package repository

import (
	"context"
	"fmt"
)

// schemaStatements create the pgvector backend's tables. The embedding column
// is unconstrained so the service can switch embedding models per document.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS qa_documents (
		id              TEXT PRIMARY KEY,
		embedding_model TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS qa_chunks (
		id          TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES qa_documents(id) ON DELETE CASCADE,
		page        INTEGER NOT NULL,
		position    INTEGER NOT NULL,
		ordinal     INTEGER NOT NULL,
		content     TEXT NOT NULL,
		embedding   vector NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS qa_chunks_document_ordinal_idx ON qa_chunks (document_id, ordinal)`,
}

// EnsureSchema applies the idempotent DDL.
func (s *PgvectorStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
