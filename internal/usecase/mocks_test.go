package usecase_test

import (
	"context"
	"io"
	"log/slog"

	"doc-qa/internal/domain"
	"doc-qa/internal/infra/logger"
	"doc-qa/internal/usecase"

	"github.com/stretchr/testify/mock"
)

func testLogger() *logger.ContextLogger {
	return logger.NewContextLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)), "doc-qa-test")
}

type MockPageExtractor struct {
	mock.Mock
}

func (m *MockPageExtractor) Extract(ctx context.Context, path string) ([]domain.Page, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Page), args.Error(1)
}

type MockIndexStore struct {
	mock.Mock
}

func (m *MockIndexStore) CreateOrOpen(ctx context.Context, documentID string) (domain.DocumentIndex, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.DocumentIndex), args.Error(1)
}

func (m *MockIndexStore) Open(ctx context.Context, documentID string) (domain.DocumentIndex, bool, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(domain.DocumentIndex), args.Bool(1), args.Error(2)
}

func (m *MockIndexStore) Drop(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

type MockDocumentIndex struct {
	mock.Mock
}

func (m *MockDocumentIndex) Add(ctx context.Context, chunks []domain.Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockDocumentIndex) Query(ctx context.Context, text string, k int) ([]domain.RetrievedContext, error) {
	args := m.Called(ctx, text, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedContext), args.Error(1)
}

func (m *MockDocumentIndex) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockChatClient struct {
	mock.Mock
}

func (m *mockChatClient) Chat(ctx context.Context, messages []domain.Message, opts domain.ChatOptions) (*domain.LLMResponse, error) {
	args := m.Called(ctx, messages, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LLMResponse), args.Error(1)
}

func (m *mockChatClient) Version() string {
	return "mock"
}

type mockRetrieveContextUsecase struct {
	mock.Mock
}

func (m *mockRetrieveContextUsecase) Execute(ctx context.Context, input usecase.RetrieveContextInput) ([]domain.RetrievedContext, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedContext), args.Error(1)
}

type mockAnswerQuestionUsecase struct {
	mock.Mock
}

func (m *mockAnswerQuestionUsecase) Execute(ctx context.Context, question string, contexts []domain.RetrievedContext) (*usecase.AnswerOutput, error) {
	args := m.Called(ctx, question, contexts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.AnswerOutput), args.Error(1)
}

func retrieved(page, ordinal int, text string, distance float64) domain.RetrievedContext {
	return domain.RetrievedContext{
		Chunk:    domain.Chunk{DocumentID: "doc", Page: page, Ordinal: ordinal, Text: text},
		Distance: distance,
	}
}
