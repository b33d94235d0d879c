package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"doc-qa/internal/domain"
	"doc-qa/internal/infra/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// IngestDocumentInput points at a PDF already persisted on local disk.
type IngestDocumentInput struct {
	Path string
}

// IngestDocumentOutput reports the new document and what was indexed.
// Pages counts pages that yielded text.
type IngestDocumentOutput struct {
	DocumentID string
	Pages      int
	Chunks     int
}

// IngestDocumentUsecase turns a PDF into a freshly named, queryable index.
type IngestDocumentUsecase interface {
	Execute(ctx context.Context, input IngestDocumentInput) (*IngestDocumentOutput, error)
}

type ingestDocumentUsecase struct {
	extractor domain.PageExtractor
	chunker   domain.Chunker
	store     domain.IndexStore
	newID     func() string
	logger    *logger.ContextLogger
}

// NewIngestDocumentUsecase creates a new IngestDocumentUsecase.
func NewIngestDocumentUsecase(
	extractor domain.PageExtractor,
	chunker domain.Chunker,
	store domain.IndexStore,
	log *logger.ContextLogger,
) IngestDocumentUsecase {
	return &ingestDocumentUsecase{
		extractor: extractor,
		chunker:   chunker,
		store:     store,
		newID:     domain.NewDocumentID,
		logger:    log,
	}
}

func (u *ingestDocumentUsecase) Execute(ctx context.Context, input IngestDocumentInput) (*IngestDocumentOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, fmt.Errorf("%w: file path is required", domain.ErrInvalidInput)
	}

	docID := u.newID()
	ctx = logger.WithStage(logger.WithDocumentID(ctx, docID), "ingest")
	ctx, span := tracer.Start(ctx, "IngestDocument")
	defer span.End()
	span.SetAttributes(attribute.String(string(logger.DocumentIDKey), docID))

	log := u.logger.WithContext(ctx)
	start := time.Now()
	log.Info("ingest_started")

	pages, err := u.extractor.Extract(ctx, input.Path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extract pages")
		log.Warn("ingest_extraction_failed", "error", err)
		return nil, err
	}

	chunks := u.chunkPages(docID, pages)

	// The namespace exists even when no page had text, so later questions get
	// the "nothing relevant" answer instead of an error.
	index, err := u.store.CreateOrOpen(ctx, docID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create index")
		return nil, fmt.Errorf("create index: %w", err)
	}

	if len(chunks) > 0 {
		if err := index.Add(ctx, chunks); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "add chunks")
			u.discard(ctx, docID)
			return nil, fmt.Errorf("index chunks: %w", err)
		}
	}

	span.SetAttributes(
		attribute.Int("docqa.ingest.pages", len(pages)),
		attribute.Int("docqa.ingest.chunks", len(chunks)),
	)
	log.Info("ingest_completed",
		"pages", len(pages),
		"chunks", len(chunks),
		"duration_ms", time.Since(start).Milliseconds())

	return &IngestDocumentOutput{DocumentID: docID, Pages: len(pages), Chunks: len(chunks)}, nil
}

// chunkPages windows every page. Position restarts at zero on each page while
// Ordinal counts across the whole document.
func (u *ingestDocumentUsecase) chunkPages(docID string, pages []domain.Page) []domain.Chunk {
	var chunks []domain.Chunk
	for _, p := range pages {
		for pos, text := range u.chunker.Split(p.Text) {
			chunks = append(chunks, domain.Chunk{
				DocumentID: docID,
				Page:       p.Number,
				Position:   pos,
				Ordinal:    len(chunks),
				Text:       text,
			})
		}
	}
	return chunks
}

// discard drops a half-written namespace so a failed ingestion leaves nothing
// queryable behind. It runs even when ctx was cancelled.
func (u *ingestDocumentUsecase) discard(ctx context.Context, docID string) {
	dropCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := u.store.Drop(dropCtx, docID); err != nil {
		u.logger.WithContext(ctx).Error("ingest_cleanup_failed", "error", err)
	}
}
