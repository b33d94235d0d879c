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

const keepAliveSeconds = 600

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []chatMessage  `json:"messages"`
	Stream    bool           `json:"stream"`
	KeepAlive int            `json:"keep_alive"`
	Options   map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// OllamaGenerator sends a single non-streaming request to Ollama's /api/chat.
type OllamaGenerator struct {
	BaseURL string
	Model   string
	Client  *http.Client
	Policy  retry.Policy
}

func NewOllamaGenerator(baseURL, model string, client *http.Client, policy retry.Policy) *OllamaGenerator {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &OllamaGenerator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  client,
		Policy:  policy,
	}
}

func (g *OllamaGenerator) buildOptions(opts domain.ChatOptions) map[string]any {
	o := map[string]any{"temperature": opts.Temperature}
	if opts.MaxTokens > 0 {
		o["num_predict"] = opts.MaxTokens
	}
	return o
}

// Chat returns the trimmed assistant message.
func (g *OllamaGenerator) Chat(ctx context.Context, messages []domain.Message, opts domain.ChatOptions) (*domain.LLMResponse, error) {
	reqBody := chatRequest{
		Model:     g.Model,
		Messages:  make([]chatMessage, len(messages)),
		Stream:    false,
		KeepAlive: keepAliveSeconds,
		Options:   g.buildOptions(opts),
	}
	for i, m := range messages {
		reqBody.Messages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	start := time.Now()
	chatResp, err := retry.Do(ctx, g.Policy, "ollama_chat", func(ctx context.Context) (*chatResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/api/chat", bytes.NewReader(jsonPayload))
		if err != nil {
			return nil, fmt.Errorf("failed to create chat request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.Client.Do(req)
		if err != nil {
			return nil, retry.Transient(fmt.Errorf("failed to call generation endpoint: %w", err))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &retry.StatusError{Service: "ollama", StatusCode: resp.StatusCode, Body: string(body)}
		}

		var out chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("failed to decode generation response: %w", err)
		}
		return &out, nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "ollama_chat_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("%w: ollama chat: %w", domain.ErrUpstream, err)
	}

	return &domain.LLMResponse{
		Text: strings.TrimSpace(chatResp.Message.Content),
		Done: chatResp.Done,
	}, nil
}

// Version returns the wrapped model name.
func (g *OllamaGenerator) Version() string {
	return g.Model
}

var _ domain.ChatClient = (*OllamaGenerator)(nil)
