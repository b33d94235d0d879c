package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"doc-qa/internal/domain"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type dbExecutor interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var chunkColumns = []string{"id", "document_id", "page", "position", "ordinal", "content", "embedding"}

// PgvectorStore implements domain.IndexStore with one qa_documents row per
// document and its chunks in qa_chunks.
type PgvectorStore struct {
	db      DB
	tm      domain.TransactionManager
	encoder domain.VectorEncoder
}

func NewPgvectorStore(db DB, encoder domain.VectorEncoder) *PgvectorStore {
	return &PgvectorStore{
		db:      db,
		tm:      NewPostgresTransactionManager(db),
		encoder: encoder,
	}
}

func (s *PgvectorStore) getExecutor(ctx context.Context) dbExecutor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return s.db
}

func (s *PgvectorStore) CreateOrOpen(ctx context.Context, documentID string) (domain.DocumentIndex, error) {
	query := `
		INSERT INTO qa_documents (id, embedding_model)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.getExecutor(ctx).Exec(ctx, query, documentID, s.encoder.Version()); err != nil {
		return nil, fmt.Errorf("failed to create document %s: %w", documentID, err)
	}
	return &pgvectorIndex{store: s, documentID: documentID}, nil
}

func (s *PgvectorStore) Open(ctx context.Context, documentID string) (domain.DocumentIndex, bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM qa_documents WHERE id = $1)`
	if err := s.getExecutor(ctx).QueryRow(ctx, query, documentID).Scan(&exists); err != nil {
		return nil, false, fmt.Errorf("failed to look up document %s: %w", documentID, err)
	}
	if !exists {
		return nil, false, nil
	}
	return &pgvectorIndex{store: s, documentID: documentID}, true, nil
}

// Drop deletes the document row; chunks go with it through ON DELETE CASCADE.
func (s *PgvectorStore) Drop(ctx context.Context, documentID string) error {
	if _, err := s.getExecutor(ctx).Exec(ctx, `DELETE FROM qa_documents WHERE id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to drop document %s: %w", documentID, err)
	}
	return nil
}

type pgvectorIndex struct {
	store      *PgvectorStore
	documentID string
}

// Add embeds the chunks and copies them in a single transaction.
func (i *pgvectorIndex) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Text
	}
	vectors, err := i.store.encoder.Encode(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: encoder returned %d vectors for %d chunks", domain.ErrUpstream, len(vectors), len(chunks))
	}

	rows := make([][]any, len(chunks))
	for n, c := range chunks {
		rows[n] = []any{
			c.ID(),
			i.documentID,
			c.Page,
			c.Position,
			c.Ordinal,
			c.Text,
			pgvector.NewVector(vectors[n]),
		}
	}

	return i.store.tm.RunInTx(ctx, func(ctx context.Context) error {
		_, err := i.store.getExecutor(ctx).CopyFrom(ctx, pgx.Identifier{"qa_chunks"}, chunkColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to bulk insert chunks: %w", err)
		}
		return nil
	})
}

func (i *pgvectorIndex) Query(ctx context.Context, text string, k int) ([]domain.RetrievedContext, error) {
	if k <= 0 {
		return nil, nil
	}
	vectors, err := i.store.encoder.Encode(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: encoder returned no query vector", domain.ErrUpstream)
	}

	query := `
		SELECT page, position, ordinal, content, embedding <=> $2 AS distance
		FROM qa_chunks
		WHERE document_id = $1
		ORDER BY distance ASC, ordinal ASC
		LIMIT $3
	`
	rows, err := i.store.getExecutor(ctx).Query(ctx, query, i.documentID, pgvector.NewVector(vectors[0]), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.RetrievedContext
	for rows.Next() {
		rc := domain.RetrievedContext{Chunk: domain.Chunk{DocumentID: i.documentID}}
		if err := rows.Scan(&rc.Chunk.Page, &rc.Chunk.Position, &rc.Chunk.Ordinal, &rc.Chunk.Text, &rc.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func (i *pgvectorIndex) Count(ctx context.Context) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM qa_chunks WHERE document_id = $1`
	if err := i.store.getExecutor(ctx).QueryRow(ctx, query, i.documentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

var _ domain.IndexStore = (*PgvectorStore)(nil)
