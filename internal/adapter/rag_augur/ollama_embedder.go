package rag_augur

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"doc-qa/internal/domain"
	"doc-qa/internal/infra/retry"
)

// OllamaEmbedder calls Ollama's /api/embed with a batch of inputs.
type OllamaEmbedder struct {
	BaseURL string
	Model   string
	Client  *http.Client
	Policy  retry.Policy
}

func NewOllamaEmbedder(baseURL, model string, client *http.Client, policy retry.Policy) *OllamaEmbedder {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &OllamaEmbedder{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  client,
		Policy:  policy,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (e *OllamaEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	start := time.Now()

	jsonData, err := json.Marshal(embedRequest{Model: e.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	embeddings, err := retry.Do(ctx, e.Policy, "ollama_embed", func(ctx context.Context) ([][]float32, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/api/embed", bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.Client.Do(req)
		if err != nil {
			return nil, retry.Transient(fmt.Errorf("failed to call ollama: %w", err))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &retry.StatusError{Service: "ollama", StatusCode: resp.StatusCode, Body: string(body)}
		}

		var respBody embedResponse
		if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		if len(respBody.Embeddings) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(respBody.Embeddings))
		}
		return respBody.Embeddings, nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "ollama_embed_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("%w: ollama embed: %w", domain.ErrUpstream, err)
	}

	slog.DebugContext(ctx, "ollama_embed_completed",
		slog.Int("embedding_count", len(embeddings)),
		slog.String("model", e.Model),
		slog.Duration("elapsed", time.Since(start)),
	)
	return embeddings, nil
}

func (e *OllamaEmbedder) Version() string {
	return e.Model
}

var _ domain.VectorEncoder = (*OllamaEmbedder)(nil)
