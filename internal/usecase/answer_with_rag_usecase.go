package usecase

import (
	"context"
	"log/slog"

	"doc-qa/internal/infra/logger"
)

// AnswerWithRAGInput encapsulates the parameters that drive one question.
type AnswerWithRAGInput struct {
	DocumentID string
	Question   string
	K          int
}

// AnswerWithRAGUsecase retrieves the closest chunks of a document and answers
// the question from them.
type AnswerWithRAGUsecase interface {
	Execute(ctx context.Context, input AnswerWithRAGInput) (*AnswerOutput, error)
}

type answerWithRAGUsecase struct {
	retrieve RetrieveContextUsecase
	answer   AnswerQuestionUsecase
	cache    *AnswerCache
	logger   *logger.ContextLogger
}

// NewAnswerWithRAGUsecase wires together the components needed to generate a
// RAG answer. cache may be nil.
func NewAnswerWithRAGUsecase(
	retrieve RetrieveContextUsecase,
	answer AnswerQuestionUsecase,
	cache *AnswerCache,
	log *logger.ContextLogger,
) AnswerWithRAGUsecase {
	return &answerWithRAGUsecase{
		retrieve: retrieve,
		answer:   answer,
		cache:    cache,
		logger:   log,
	}
}

func (u *answerWithRAGUsecase) Execute(ctx context.Context, input AnswerWithRAGInput) (*AnswerOutput, error) {
	ctx = logger.WithDocumentID(ctx, input.DocumentID)

	if cached, ok := u.cache.Get(input.DocumentID, input.Question, input.K); ok {
		u.logger.WithContext(ctx).Debug("answer_cache_hit", slog.Int("k", input.K))
		return cached, nil
	}

	contexts, err := u.retrieve.Execute(ctx, RetrieveContextInput(input))
	if err != nil {
		return nil, err
	}

	out, err := u.answer.Execute(ctx, input.Question, contexts)
	if err != nil {
		return nil, err
	}

	u.cache.Add(input.DocumentID, input.Question, input.K, out)
	return out, nil
}
