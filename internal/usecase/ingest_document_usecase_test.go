package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"doc-qa/internal/adapter/embedding"
	"doc-qa/internal/adapter/vectorstore"
	"doc-qa/internal/domain"
	"doc-qa/internal/usecase"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestChunker(t *testing.T) domain.Chunker {
	t.Helper()
	c, err := domain.NewChunker(domain.DefaultChunkSize, domain.DefaultChunkOverlap)
	require.NoError(t, err)
	return c
}

func TestIngestDocument_Execute_Success(t *testing.T) {
	extractor := new(MockPageExtractor)
	store := new(MockIndexStore)
	index := new(MockDocumentIndex)

	longPage := strings.Repeat("x", 1000) // two windows at 900/150
	extractor.On("Extract", mock.Anything, "/tmp/a.pdf").Return([]domain.Page{
		{Number: 1, Text: "The capital of France is Paris."},
		{Number: 3, Text: longPage},
	}, nil)

	var docID string
	store.On("CreateOrOpen", mock.Anything, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { docID = args.String(1) }).
		Return(index, nil)

	var stored []domain.Chunk
	index.On("Add", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(1).([]domain.Chunk) }).
		Return(nil)

	uc := usecase.NewIngestDocumentUsecase(extractor, newTestChunker(t), store, testLogger())

	out, err := uc.Execute(context.Background(), usecase.IngestDocumentInput{Path: "/tmp/a.pdf"})
	require.NoError(t, err)

	assert.Regexp(t, `^[0-9a-f]{32}$`, out.DocumentID)
	assert.Equal(t, docID, out.DocumentID)
	assert.Equal(t, 2, out.Pages)
	assert.Equal(t, 3, out.Chunks)

	require.Len(t, stored, 3)
	assert.Equal(t, fmt.Sprintf("%s_1_0", docID), stored[0].ID())
	assert.Equal(t, fmt.Sprintf("%s_3_0", docID), stored[1].ID())
	assert.Equal(t, fmt.Sprintf("%s_3_1", docID), stored[2].ID())
	for i, c := range stored {
		assert.Equal(t, i, c.Ordinal)
	}
	assert.Len(t, stored[1].Text, 900)
	assert.Len(t, stored[2].Text, 250)

	store.AssertNotCalled(t, "Drop", mock.Anything, mock.Anything)
	index.AssertExpectations(t)
}

func TestIngestDocument_Execute_NoTextStillCreatesNamespace(t *testing.T) {
	extractor := new(MockPageExtractor)
	store := new(MockIndexStore)
	index := new(MockDocumentIndex)

	extractor.On("Extract", mock.Anything, mock.Anything).Return([]domain.Page{}, nil)
	store.On("CreateOrOpen", mock.Anything, mock.Anything).Return(index, nil)

	uc := usecase.NewIngestDocumentUsecase(extractor, newTestChunker(t), store, testLogger())

	out, err := uc.Execute(context.Background(), usecase.IngestDocumentInput{Path: "/tmp/scan.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Pages)
	assert.Equal(t, 0, out.Chunks)

	store.AssertCalled(t, "CreateOrOpen", mock.Anything, out.DocumentID)
	index.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestIngestDocument_Execute_ExtractionError(t *testing.T) {
	extractor := new(MockPageExtractor)
	store := new(MockIndexStore)

	extractor.On("Extract", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: bad xref", domain.ErrExtraction))

	uc := usecase.NewIngestDocumentUsecase(extractor, newTestChunker(t), store, testLogger())

	out, err := uc.Execute(context.Background(), usecase.IngestDocumentInput{Path: "/tmp/broken.pdf"})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	store.AssertNotCalled(t, "CreateOrOpen", mock.Anything, mock.Anything)
}

func TestIngestDocument_Execute_AddFailureDropsNamespace(t *testing.T) {
	extractor := new(MockPageExtractor)
	store := new(MockIndexStore)
	index := new(MockDocumentIndex)

	extractor.On("Extract", mock.Anything, mock.Anything).
		Return([]domain.Page{{Number: 1, Text: "hello"}}, nil)
	store.On("CreateOrOpen", mock.Anything, mock.Anything).Return(index, nil)
	index.On("Add", mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: embeddings 503", domain.ErrUpstream))
	store.On("Drop", mock.Anything, mock.Anything).Return(nil)

	uc := usecase.NewIngestDocumentUsecase(extractor, newTestChunker(t), store, testLogger())

	// a cancelled caller must not prevent cleanup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := uc.Execute(ctx, usecase.IngestDocumentInput{Path: "/tmp/a.pdf"})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, domain.ErrUpstream)

	createdID := store.Calls[0].Arguments.String(1)
	store.AssertCalled(t, "Drop", mock.Anything, createdID)
}

func TestIngestDocument_Execute_EmptyPath(t *testing.T) {
	uc := usecase.NewIngestDocumentUsecase(new(MockPageExtractor), newTestChunker(t), new(MockIndexStore), testLogger())

	_, err := uc.Execute(context.Background(), usecase.IngestDocumentInput{Path: " "})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestIngestDocument_Execute_SamePDFTwiceYieldsSeparateDocuments(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewChromemStore(chromem.NewDB(), embedding.NewHashEncoder(256))
	ingest := usecase.NewIngestDocumentUsecase(stubExtractor{pages: []domain.Page{
		{Number: 1, Text: "The capital of France is Paris."},
		{Number: 2, Text: strings.Repeat("lorem ipsum ", 100)},
	}}, newTestChunker(t), store, testLogger())

	a, err := ingest.Execute(ctx, usecase.IngestDocumentInput{Path: "same.pdf"})
	require.NoError(t, err)
	b, err := ingest.Execute(ctx, usecase.IngestDocumentInput{Path: "same.pdf"})
	require.NoError(t, err)

	assert.NotEqual(t, a.DocumentID, b.DocumentID)
	assert.Equal(t, a.Pages, b.Pages)
	assert.Equal(t, a.Chunks, b.Chunks)

	for _, doc := range []*usecase.IngestDocumentOutput{a, b} {
		index, ok, err := store.Open(ctx, doc.DocumentID)
		require.NoError(t, err)
		require.True(t, ok)

		count, err := index.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, doc.Chunks, count)

		hits, err := index.Query(ctx, "capital of France", usecase.MaxK)
		require.NoError(t, err)
		require.Len(t, hits, doc.Chunks)
		for _, h := range hits {
			assert.Equal(t, doc.DocumentID, h.Chunk.DocumentID)
			assert.True(t, strings.HasPrefix(h.Chunk.ID(), doc.DocumentID+"_"))
		}
	}
}
