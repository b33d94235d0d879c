package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	// ProviderHash selects the offline bag-of-words encoder. Embeddings only.
	ProviderHash = "hash"

	BackendChromem  = "chromem"
	BackendPgvector = "pgvector"

	// Upper bounds on retrieval depth and citation snippet length.
	maxRetrievalK    = 15
	maxSnippetLength = 220
)

type Config struct {
	Env         string
	Server      ServerConfig
	LLM         LLMConfig
	Embedder    EmbedderConfig
	VectorStore VectorStoreConfig
	DB          DBConfig
	RAG         RAGConfig
	Upload      UploadConfig
	Retry       RetryConfig
	Cache       CacheConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Worker      WorkerConfig
	OTel        OTelConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// LLMConfig describes the chat model used for answer synthesis.
type LLMConfig struct {
	Provider       string
	BaseURL        string
	APIKey         string
	ChatModel      string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
}

// EmbedderConfig describes the embedding model shared by ingestion and retrieval.
type EmbedderConfig struct {
	Provider       string
	BaseURL        string
	APIKey         string
	Model          string
	BatchSize      int
	Concurrency    int
	TimeoutSeconds int
}

type VectorStoreConfig struct {
	Backend    string
	PersistDir string
	Compress   bool
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int32
	MinConns int32
}

// DSN renders the connection string consumed by pgxpool.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name)
}

type RAGConfig struct {
	ChunkSize     int
	ChunkOverlap  int
	DefaultK      int
	MaxK          int
	SnippetLength int
}

type UploadConfig struct {
	MaxMB int
	Dir   string
}

// MaxBytes is the upload ceiling in bytes.
func (u UploadConfig) MaxBytes() int64 {
	return int64(u.MaxMB) * 1024 * 1024
}

type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type CacheConfig struct {
	Size int // 0 disables the answer cache
	TTL  int // minutes
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type CORSConfig struct {
	AllowOrigins []string
}

type WorkerConfig struct {
	Concurrency int
	QueueSize   int
}

type OTelConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	SampleRatio    float64
}

func Load() *Config {
	return &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "8000"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		LLM: LLMConfig{
			Provider:       getEnv("LLM_PROVIDER", ProviderOpenAI),
			BaseURL:        getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:         getSecret("OPENAI_API_KEY", "OPENAI_API_KEY_FILE", ""),
			ChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			Temperature:    getEnvFloat64("LLM_TEMPERATURE", 0.2),
			MaxTokens:      getEnvInt("LLM_MAX_TOKENS", 0),
			TimeoutSeconds: getEnvInt("LLM_TIMEOUT_SECONDS", 120),
		},
		Embedder: EmbedderConfig{
			Provider:       getEnvWithAlt("EMBEDDER_PROVIDER", "LLM_PROVIDER", ProviderOpenAI),
			BaseURL:        getEnvWithAlt("EMBEDDER_BASE_URL", "LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:         getSecret("OPENAI_API_KEY", "OPENAI_API_KEY_FILE", ""),
			Model:          getEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
			BatchSize:      getEnvInt("EMBED_BATCH_SIZE", 64),
			Concurrency:    getEnvInt("EMBED_CONCURRENCY", 4),
			TimeoutSeconds: getEnvInt("EMBED_TIMEOUT_SECONDS", 30),
		},
		VectorStore: VectorStoreConfig{
			Backend:    getEnv("VECTOR_STORE", BackendChromem),
			PersistDir: getEnv("CHROMA_PERSIST_DIR", "./storage/chroma"),
			Compress:   getEnvBool("CHROMA_COMPRESS", false),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "docqa"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "docqa"),
			Name:     getEnv("DB_NAME", "docqa"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		RAG: RAGConfig{
			ChunkSize:     getEnvInt("CHUNK_SIZE", 900),
			ChunkOverlap:  getEnvInt("CHUNK_OVERLAP", 150),
			DefaultK:      getEnvInt("RAG_DEFAULT_K", 5),
			MaxK:          getEnvInt("RAG_MAX_K", 15),
			SnippetLength: getEnvInt("RAG_SNIPPET_LENGTH", 220),
		},
		Upload: UploadConfig{
			MaxMB: getEnvInt("MAX_UPLOAD_MB", 25),
			Dir:   getEnv("UPLOAD_DIR", "./storage/uploads"),
		},
		Retry: RetryConfig{
			MaxAttempts:     getEnvInt("UPSTREAM_MAX_ATTEMPTS", 4),
			InitialInterval: getEnvDuration("UPSTREAM_RETRY_INITIAL", 500*time.Millisecond),
			MaxInterval:     getEnvDuration("UPSTREAM_RETRY_MAX", 5*time.Second),
		},
		Cache: CacheConfig{
			Size: getEnvInt("ANSWER_CACHE_SIZE", 256),
			TTL:  getEnvInt("ANSWER_CACHE_TTL_MINUTES", 10),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			RPS:     getEnvFloat64("RATE_LIMIT_RPS", 2),
			Burst:   getEnvInt("RATE_LIMIT_BURST", 10),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnvList("CORS_ALLOW_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvInt("INGEST_WORKERS", 2),
			QueueSize:   getEnvInt("INGEST_QUEUE_SIZE", 16),
		},
		OTel: OTelConfig{
			Enabled:        getEnvBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "doc-qa"),
			ServiceVersion: getEnv("SERVICE_VERSION", "0.0.0"),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
			SampleRatio:    getEnvFloat64("OTEL_TRACE_SAMPLE_RATIO", 1.0),
		},
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.RAG.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.RAG.ChunkSize))
	}
	if c.RAG.ChunkOverlap < 0 {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must not be negative, got %d", c.RAG.ChunkOverlap))
	}
	if c.RAG.ChunkSize <= c.RAG.ChunkOverlap {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE (%d) must be greater than CHUNK_OVERLAP (%d)", c.RAG.ChunkSize, c.RAG.ChunkOverlap))
	}
	if c.RAG.MaxK < 1 || c.RAG.MaxK > maxRetrievalK {
		errs = append(errs, fmt.Errorf("RAG_MAX_K must be within 1..%d, got %d", maxRetrievalK, c.RAG.MaxK))
	}
	if c.RAG.SnippetLength < 1 || c.RAG.SnippetLength > maxSnippetLength {
		errs = append(errs, fmt.Errorf("RAG_SNIPPET_LENGTH must be within 1..%d, got %d", maxSnippetLength, c.RAG.SnippetLength))
	}
	if c.RAG.DefaultK < 1 || c.RAG.DefaultK > c.RAG.MaxK {
		errs = append(errs, fmt.Errorf("RAG_DEFAULT_K must be within 1..%d, got %d", c.RAG.MaxK, c.RAG.DefaultK))
	}
	if c.Upload.MaxMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.Upload.MaxMB))
	}
	if c.LLM.Provider != ProviderOpenAI && c.LLM.Provider != ProviderOllama {
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider))
	}
	switch c.Embedder.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderHash:
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDER_PROVIDER %q", c.Embedder.Provider))
	}
	if c.Embedder.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("EMBED_BATCH_SIZE must be at least 1, got %d", c.Embedder.BatchSize))
	}
	if c.VectorStore.Backend != BackendChromem && c.VectorStore.Backend != BackendPgvector {
		errs = append(errs, fmt.Errorf("unknown VECTOR_STORE %q", c.VectorStore.Backend))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("UPSTREAM_MAX_ATTEMPTS must be at least 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("INGEST_WORKERS must be at least 1, got %d", c.Worker.Concurrency))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}

	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return fallback
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat64(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
