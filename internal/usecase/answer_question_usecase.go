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

// FallbackAnswer is returned without consulting the LLM when retrieval found nothing.
const FallbackAnswer = "I couldn’t find relevant text in the uploaded document to answer that. " +
	"Try rephrasing or asking about a specific section."

// DefaultSnippetLength is the number of characters kept in a citation snippet.
const DefaultSnippetLength = 220

// AnswerOutput is a grounded answer plus the evidence it was built from.
type AnswerOutput struct {
	Answer     string
	Citations  []domain.Citation
	UsedChunks int
}

// AnswerQuestionUsecase synthesizes an answer from already retrieved contexts.
type AnswerQuestionUsecase interface {
	Execute(ctx context.Context, question string, contexts []domain.RetrievedContext) (*AnswerOutput, error)
}

type answerQuestionUsecase struct {
	chat          domain.ChatClient
	promptBuilder PromptBuilder
	opts          domain.ChatOptions
	snippetLength int
	logger        *logger.ContextLogger
}

// NewAnswerQuestionUsecase wires the chat model and prompt builder. A
// non-positive snippetLength uses DefaultSnippetLength.
func NewAnswerQuestionUsecase(
	chat domain.ChatClient,
	promptBuilder PromptBuilder,
	opts domain.ChatOptions,
	snippetLength int,
	log *logger.ContextLogger,
) AnswerQuestionUsecase {
	if snippetLength <= 0 {
		snippetLength = DefaultSnippetLength
	}
	return &answerQuestionUsecase{
		chat:          chat,
		promptBuilder: promptBuilder,
		opts:          opts,
		snippetLength: snippetLength,
		logger:        log,
	}
}

func (u *answerQuestionUsecase) Execute(ctx context.Context, question string, contexts []domain.RetrievedContext) (*AnswerOutput, error) {
	ctx = logger.WithStage(ctx, "answer")
	log := u.logger.WithContext(ctx)

	if len(contexts) == 0 {
		log.Info("answer_fallback", "reason", "no_contexts")
		return &AnswerOutput{Answer: FallbackAnswer, Citations: []domain.Citation{}, UsedChunks: 0}, nil
	}

	ctx, span := tracer.Start(ctx, "AnswerQuestion")
	defer span.End()
	span.SetAttributes(
		attribute.Int("docqa.answer.contexts", len(contexts)),
		attribute.String("docqa.answer.model", u.chat.Version()),
	)

	messages := u.promptBuilder.Build(question, contexts)

	start := time.Now()
	resp, err := u.chat.Chat(ctx, messages, u.opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion")
		log.Error("answer_generation_failed", "error", err)
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	if resp == nil {
		err := fmt.Errorf("%w: empty chat response", domain.ErrUpstream)
		span.SetStatus(codes.Error, "empty chat response")
		return nil, err
	}
	if !resp.Done {
		log.Warn("answer_incomplete")
	}

	out := &AnswerOutput{
		Answer:     strings.TrimSpace(resp.Text),
		Citations:  BuildCitations(contexts, u.snippetLength),
		UsedChunks: len(contexts),
	}

	log.Info("answer_generated",
		"used_chunks", out.UsedChunks,
		"citations", len(out.Citations),
		"duration_ms", time.Since(start).Milliseconds())

	return out, nil
}

// BuildCitations emits one citation per non-empty context, in retrieval order.
// Repeated pages are kept.
func BuildCitations(contexts []domain.RetrievedContext, snippetLength int) []domain.Citation {
	citations := make([]domain.Citation, 0, len(contexts))
	for _, c := range contexts {
		if c.Chunk.Text == "" {
			continue
		}
		citations = append(citations, domain.Citation{
			Page:    c.Chunk.Page,
			Snippet: Snippet(c.Chunk.Text, snippetLength),
		})
	}
	return citations
}

// Snippet keeps the first n characters of text with line breaks turned into
// spaces and the ends trimmed.
func Snippet(text string, n int) string {
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	return strings.TrimSpace(strings.ReplaceAll(string(runes), "\n", " "))
}
