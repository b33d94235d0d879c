package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"doc-qa/internal/domain"
	"doc-qa/internal/infra/retry"
)

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embedder produces vectors with an OpenAI embedding model. Each Encode call
// is one HTTP request; batching is layered on top by the caller.
type Embedder struct {
	api   apiClient
	model string
}

func NewEmbedder(baseURL, apiKey, model string, httpClient *http.Client, policy retry.Policy) *Embedder {
	return &Embedder{
		api:   newAPIClient(baseURL, apiKey, httpClient, policy),
		model: model,
	}
}

func (e *Embedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	start := time.Now()

	vectors, err := retry.Do(ctx, e.api.policy, "openai_embed", func(ctx context.Context) ([][]float32, error) {
		var resp embeddingResponse
		if err := e.api.postJSON(ctx, "/embeddings", embeddingRequest{Model: e.model, Input: texts}, &resp); err != nil {
			return nil, err
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
		}
		sort.SliceStable(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
		out := make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			out[i] = d.Embedding
		}
		return out, nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "openai_embed_failed",
			slog.Int("text_count", len(texts)),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: openai embeddings: %w", domain.ErrUpstream, err)
	}

	slog.DebugContext(ctx, "openai_embed_completed",
		slog.Int("text_count", len(texts)),
		slog.String("model", e.model),
		slog.Duration("elapsed", time.Since(start)),
	)
	return vectors, nil
}

func (e *Embedder) Version() string {
	return e.model
}

var _ domain.VectorEncoder = (*Embedder)(nil)
