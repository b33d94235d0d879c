// Package vectorstore keeps one embedded chromem-go collection per document.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"doc-qa/internal/domain"
)

const collectionPrefix = "doc_"

// CollectionName is the namespace holding a document's chunks.
func CollectionName(documentID string) string {
	return collectionPrefix + documentID
}

// ChromemStore implements domain.IndexStore on top of chromem-go. Embeddings
// are computed through the injected encoder so ingestion and queries always
// use the same model.
type ChromemStore struct {
	db      *chromem.DB
	encoder domain.VectorEncoder
	mu      sync.Mutex
}

// NewPersistentChromemStore opens (or creates) the on-disk database at dir.
func NewPersistentChromemStore(dir string, compress bool, encoder domain.VectorEncoder) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(dir, compress)
	if err != nil {
		return nil, fmt.Errorf("open chromem db at %s: %w", dir, err)
	}
	return NewChromemStore(db, encoder), nil
}

func NewChromemStore(db *chromem.DB, encoder domain.VectorEncoder) *ChromemStore {
	return &ChromemStore{db: db, encoder: encoder}
}

func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := s.encoder.Encode(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("encoder returned %d vectors for one text", len(vectors))
		}
		return vectors[0], nil
	}
}

func (s *ChromemStore) CreateOrOpen(_ context.Context, documentID string) (domain.DocumentIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// chromem ranks by cosine similarity only.
	col, err := s.db.GetOrCreateCollection(CollectionName(documentID), map[string]string{
		"embedding_model": s.encoder.Version(),
	}, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("create collection for %s: %w", documentID, err)
	}
	return &chromemIndex{documentID: documentID, col: col, encoder: s.encoder}, nil
}

func (s *ChromemStore) Open(_ context.Context, documentID string) (domain.DocumentIndex, bool, error) {
	col := s.db.GetCollection(CollectionName(documentID), s.embeddingFunc())
	if col == nil {
		return nil, false, nil
	}
	return &chromemIndex{documentID: documentID, col: col, encoder: s.encoder}, true, nil
}

func (s *ChromemStore) Drop(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(CollectionName(documentID)); err != nil {
		return fmt.Errorf("drop collection for %s: %w", documentID, err)
	}
	return nil
}

type chromemIndex struct {
	documentID string
	col        *chromem.Collection
	encoder    domain.VectorEncoder
}

// chunkMetadata is the fixed shape stored next to every vector. It is only
// flattened to strings at this boundary.
type chunkMetadata struct {
	Page     int
	Position int
	Ordinal  int
}

func (m chunkMetadata) toMap() map[string]string {
	return map[string]string{
		"page":     strconv.Itoa(m.Page),
		"position": strconv.Itoa(m.Position),
		"ordinal":  strconv.Itoa(m.Ordinal),
	}
}

func metadataFromMap(raw map[string]string) (chunkMetadata, error) {
	var m chunkMetadata
	var err error
	if m.Page, err = strconv.Atoi(raw["page"]); err != nil {
		return m, fmt.Errorf("metadata page: %w", err)
	}
	if m.Position, err = strconv.Atoi(raw["position"]); err != nil {
		return m, fmt.Errorf("metadata position: %w", err)
	}
	if m.Ordinal, err = strconv.Atoi(raw["ordinal"]); err != nil {
		return m, fmt.Errorf("metadata ordinal: %w", err)
	}
	return m, nil
}

func (i *chromemIndex) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Text
	}
	vectors, err := i.encoder.Encode(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: encoder returned %d vectors for %d chunks", domain.ErrUpstream, len(vectors), len(chunks))
	}

	docs := make([]chromem.Document, len(chunks))
	for n, c := range chunks {
		docs[n] = chromem.Document{
			ID:        c.ID(),
			Metadata:  chunkMetadata{Page: c.Page, Position: c.Position, Ordinal: c.Ordinal}.toMap(),
			Embedding: vectors[n],
			Content:   c.Text,
		}
	}
	if err := i.col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	return nil
}

func (i *chromemIndex) Query(ctx context.Context, text string, k int) ([]domain.RetrievedContext, error) {
	total := i.col.Count()
	if total == 0 || k <= 0 {
		return nil, nil
	}

	vectors, err := i.encoder.Encode(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, errors.New("encoder returned no query vector")
	}

	// Rank the whole collection so equal distances can be ordered by
	// insertion before truncating to k.
	results, err := i.col.QueryEmbedding(ctx, vectors[0], total, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	contexts := make([]domain.RetrievedContext, 0, len(results))
	for _, r := range results {
		meta, err := metadataFromMap(r.Metadata)
		if err != nil {
			slog.WarnContext(ctx, "chunk_metadata_invalid", slog.String("chunk_id", r.ID), slog.String("error", err.Error()))
			continue
		}
		contexts = append(contexts, domain.RetrievedContext{
			Chunk: domain.Chunk{
				DocumentID: i.documentID,
				Page:       meta.Page,
				Position:   meta.Position,
				Ordinal:    meta.Ordinal,
				Text:       r.Content,
			},
			Distance: 1 - float64(r.Similarity),
		})
	}

	sort.SliceStable(contexts, func(a, b int) bool {
		if contexts[a].Distance != contexts[b].Distance {
			return contexts[a].Distance < contexts[b].Distance
		}
		return contexts[a].Chunk.Ordinal < contexts[b].Chunk.Ordinal
	})
	if len(contexts) > k {
		contexts = contexts[:k]
	}
	return contexts, nil
}

func (i *chromemIndex) Count(_ context.Context) (int, error) {
	return i.col.Count(), nil
}

var _ domain.IndexStore = (*ChromemStore)(nil)
