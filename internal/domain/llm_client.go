package domain

import "context"

// Message is a single chat turn sent to the language model.
type Message struct {
	Role    string
	Content string
}

// ChatOptions tunes a single completion.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}

// LLMResponse carries the LLM output and whether the generation finished.
type LLMResponse struct {
	Text string
	Done bool
}

// ChatClient defines the capability to send chat messages to an LLM and
// receive a textual completion.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (*LLMResponse, error)
	Version() string
}
