package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"doc-qa/internal/domain"
	"doc-qa/internal/infra/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Bounds on the number of chunks a single question may retrieve.
const (
	MinK     = 1
	MaxK     = 15
	DefaultK = 5
)

// MaxQuestionLength is the longest question accepted, in characters.
const MaxQuestionLength = 2000

var tracer = otel.Tracer("doc-qa/usecase")

// RetrieveContextInput defines the input parameters for RetrieveContext.
type RetrieveContextInput struct {
	DocumentID string
	Question   string
	K          int
}

// RetrieveContextUsecase returns the chunks of one document closest to a question.
type RetrieveContextUsecase interface {
	Execute(ctx context.Context, input RetrieveContextInput) ([]domain.RetrievedContext, error)
}

type retrieveContextUsecase struct {
	store  domain.IndexStore
	maxK   int
	logger *logger.ContextLogger
}

// NewRetrieveContextUsecase creates a new RetrieveContextUsecase. A maxK outside
// 1..MaxK falls back to MaxK.
func NewRetrieveContextUsecase(store domain.IndexStore, maxK int, log *logger.ContextLogger) RetrieveContextUsecase {
	if maxK < MinK || maxK > MaxK {
		maxK = MaxK
	}
	return &retrieveContextUsecase{store: store, maxK: maxK, logger: log}
}

func (u *retrieveContextUsecase) Execute(ctx context.Context, input RetrieveContextInput) ([]domain.RetrievedContext, error) {
	if input.K < MinK || input.K > u.maxK {
		return nil, fmt.Errorf("%w: k must be between %d and %d, got %d", domain.ErrInvalidK, MinK, u.maxK, input.K)
	}
	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, fmt.Errorf("%w: doc_id is required", domain.ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(input.Question); n < 1 || n > MaxQuestionLength {
		return nil, fmt.Errorf("%w: question must be 1..%d characters, got %d", domain.ErrInvalidInput, MaxQuestionLength, n)
	}

	ctx = logger.WithStage(logger.WithDocumentID(ctx, input.DocumentID), "retrieve")
	ctx, span := tracer.Start(ctx, "RetrieveContext")
	defer span.End()
	span.SetAttributes(
		attribute.String(string(logger.DocumentIDKey), input.DocumentID),
		attribute.Int("docqa.retrieve.k", input.K),
	)
	log := u.logger.WithContext(ctx)
	start := time.Now()

	index, ok, err := u.store.Open(ctx, input.DocumentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open index")
		return nil, fmt.Errorf("open index: %w", err)
	}
	if !ok {
		// Unknown documents answer with the "nothing relevant" path, not an error.
		log.Info("retrieve_unknown_document")
		return nil, nil
	}

	contexts, err := index.Query(ctx, input.Question, input.K)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query index")
		return nil, fmt.Errorf("query index: %w", err)
	}

	span.SetAttributes(attribute.Int("docqa.retrieve.hits", len(contexts)))
	log.Info("retrieve_completed",
		"k", input.K,
		"hits", len(contexts),
		"duration_ms", time.Since(start).Milliseconds())

	return contexts, nil
}
