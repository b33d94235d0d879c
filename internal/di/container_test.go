package di

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"doc-qa/internal/infra/config"
	"doc-qa/internal/infra/retry"
	"doc-qa/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var retryPolicyForTest = retry.DefaultPolicy

func offlineConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Load()
	dir := t.TempDir()
	cfg.Embedder.Provider = config.ProviderHash
	cfg.LLM.Provider = config.ProviderOpenAI
	cfg.VectorStore.Backend = config.BackendChromem
	cfg.VectorStore.PersistDir = filepath.Join(dir, "chroma")
	cfg.Upload.Dir = filepath.Join(dir, "uploads")
	cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap = 900, 150
	cfg.Cache.Size = 0
	return cfg
}

func TestNewApplicationComponents_Chromem(t *testing.T) {
	cfg := offlineConfig(t)
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))

	app, err := NewApplicationComponents(context.Background(), cfg, log)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, "hash-bow", app.Encoder.Version())
	assert.NotNil(t, app.IngestPool)
	assert.NoError(t, app.Ready(context.Background()))
	assert.DirExists(t, cfg.Upload.Dir)

	// unknown documents fall back without reaching the chat model
	out, err := app.AnswerUsecase.Execute(context.Background(), usecase.AnswerWithRAGInput{
		DocumentID: "nonexistent",
		Question:   "anything?",
		K:          5,
	})
	require.NoError(t, err)
	assert.Equal(t, usecase.FallbackAnswer, out.Answer)
}

func TestNewApplicationComponents_InvalidChunking(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap = 100, 100

	_, err := NewApplicationComponents(context.Background(), cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestNewEncoder_WrapsRemoteProvidersInBatches(t *testing.T) {
	enc, err := newEncoder(config.EmbedderConfig{
		Provider:       config.ProviderOpenAI,
		Model:          "text-embedding-3-small",
		BatchSize:      16,
		Concurrency:    2,
		TimeoutSeconds: 5,
	}, retryPolicyForTest)
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", enc.Version())

	_, err = newEncoder(config.EmbedderConfig{Provider: "bogus"}, retryPolicyForTest)
	assert.Error(t, err)
}
