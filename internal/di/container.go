package di

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"doc-qa/internal/adapter/embedding"
	"doc-qa/internal/adapter/openai"
	"doc-qa/internal/adapter/pdf_text"
	"doc-qa/internal/adapter/rag_augur"
	"doc-qa/internal/adapter/repository"
	"doc-qa/internal/adapter/vectorstore"
	"doc-qa/internal/domain"
	"doc-qa/internal/infra"
	"doc-qa/internal/infra/config"
	"doc-qa/internal/infra/httpclient"
	"doc-qa/internal/infra/logger"
	"doc-qa/internal/infra/retry"
	"doc-qa/internal/usecase"
	"doc-qa/internal/worker"
)

const hashEncoderDims = 256

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Upstreams
	Encoder domain.VectorEncoder
	Chat    domain.ChatClient
	Store   domain.IndexStore

	// Usecases
	IngestUsecase   usecase.IngestDocumentUsecase
	RetrieveUsecase usecase.RetrieveContextUsecase
	AnswerUsecase   usecase.AnswerWithRAGUsecase

	// Worker
	IngestPool *worker.IngestPool

	// Ready reports whether the vector store can serve traffic.
	Ready func(ctx context.Context) error

	pool *pgxpool.Pool
}

// NewApplicationComponents wires all dependencies from config. The ingest pool
// is created but not started.
func NewApplicationComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*ApplicationComponents, error) {
	policy := retry.Policy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	}

	encoder, err := newEncoder(cfg.Embedder, policy)
	if err != nil {
		return nil, err
	}
	chat, err := newChatClient(cfg.LLM, policy)
	if err != nil {
		return nil, err
	}

	app := &ApplicationComponents{
		Encoder: encoder,
		Chat:    chat,
		Ready:   func(context.Context) error { return nil },
	}

	switch cfg.VectorStore.Backend {
	case config.BackendPgvector:
		pool, err := infra.NewPostgresDB(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := repository.NewPgvectorStore(pool, encoder)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		app.pool = pool
		app.Store = store
		app.Ready = func(ctx context.Context) error { return pool.Ping(ctx) }
	case config.BackendChromem:
		store, err := vectorstore.NewPersistentChromemStore(cfg.VectorStore.PersistDir, cfg.VectorStore.Compress, encoder)
		if err != nil {
			return nil, fmt.Errorf("open chromem store: %w", err)
		}
		app.Store = store
	default:
		return nil, fmt.Errorf("unknown vector store %q", cfg.VectorStore.Backend)
	}

	chunker, err := domain.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		app.Close()
		return nil, err
	}

	if err := os.MkdirAll(cfg.Upload.Dir, 0o755); err != nil {
		app.Close()
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	ctxLog := logger.NewContextLogger(log, cfg.OTel.ServiceName)

	app.IngestUsecase = usecase.NewIngestDocumentUsecase(pdf_text.NewExtractor(), chunker, app.Store, ctxLog)
	app.RetrieveUsecase = usecase.NewRetrieveContextUsecase(app.Store, cfg.RAG.MaxK, ctxLog)
	answerQuestion := usecase.NewAnswerQuestionUsecase(
		chat,
		usecase.NewGroundedPromptBuilder(),
		domain.ChatOptions{Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens},
		cfg.RAG.SnippetLength,
		ctxLog,
	)
	app.AnswerUsecase = usecase.NewAnswerWithRAGUsecase(
		app.RetrieveUsecase,
		answerQuestion,
		usecase.NewAnswerCache(cfg.Cache.Size, time.Duration(cfg.Cache.TTL)*time.Minute),
		ctxLog,
	)
	app.IngestPool = worker.NewIngestPool(app.IngestUsecase, cfg.Worker.Concurrency, cfg.Worker.QueueSize, log)

	log.Info("components_wired",
		slog.String("vector_store", cfg.VectorStore.Backend),
		slog.String("embedder", encoder.Version()),
		slog.String("chat_model", chat.Version()),
		slog.Int("chunk_size", chunker.Size()),
		slog.Int("chunk_overlap", chunker.Overlap()))

	return app, nil
}

// Close releases the database pool, if any.
func (a *ApplicationComponents) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func newEncoder(cfg config.EmbedderConfig, policy retry.Policy) (domain.VectorEncoder, error) {
	var inner domain.VectorEncoder
	client := httpclient.NewPooledClient(time.Duration(cfg.TimeoutSeconds) * time.Second)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		inner = openai.NewEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, client, policy)
	case config.ProviderOllama:
		inner = rag_augur.NewOllamaEmbedder(cfg.BaseURL, cfg.Model, client, policy)
	case config.ProviderHash:
		return embedding.NewHashEncoder(hashEncoderDims), nil
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Provider)
	}
	return embedding.NewBatchEncoder(inner, cfg.BatchSize, cfg.Concurrency), nil
}

func newChatClient(cfg config.LLMConfig, policy retry.Policy) (domain.ChatClient, error) {
	client := httpclient.NewPooledClient(time.Duration(cfg.TimeoutSeconds) * time.Second)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewChatClient(cfg.BaseURL, cfg.APIKey, cfg.ChatModel, client, policy), nil
	case config.ProviderOllama:
		return rag_augur.NewOllamaGenerator(cfg.BaseURL, cfg.ChatModel, client, policy), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
