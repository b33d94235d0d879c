package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"doc-qa/internal/domain"
	"doc-qa/internal/infra/retry"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ChatClient sends non-streaming chat completions.
type ChatClient struct {
	api   apiClient
	model string
}

func NewChatClient(baseURL, apiKey, model string, httpClient *http.Client, policy retry.Policy) *ChatClient {
	return &ChatClient{
		api:   newAPIClient(baseURL, apiKey, httpClient, policy),
		model: model,
	}
}

func (c *ChatClient) Chat(ctx context.Context, messages []domain.Message, opts domain.ChatOptions) (*domain.LLMResponse, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    make([]chatMessage, len(messages)),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	for i, m := range messages {
		req.Messages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	start := time.Now()
	resp, err := retry.Do(ctx, c.api.policy, "openai_chat", func(ctx context.Context) (*chatResponse, error) {
		var out chatResponse
		if err := c.api.postJSON(ctx, "/chat/completions", req, &out); err != nil {
			return nil, err
		}
		if len(out.Choices) == 0 {
			return nil, errors.New("no choices in response")
		}
		return &out, nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "openai_chat_failed",
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: openai chat: %w", domain.ErrUpstream, err)
	}

	choice := resp.Choices[0]
	slog.DebugContext(ctx, "openai_chat_completed",
		slog.String("model", c.model),
		slog.String("finish_reason", choice.FinishReason),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &domain.LLMResponse{
		Text: strings.TrimSpace(choice.Message.Content),
		Done: choice.FinishReason == "stop",
	}, nil
}

func (c *ChatClient) Version() string {
	return c.model
}

var _ domain.ChatClient = (*ChatClient)(nil)
