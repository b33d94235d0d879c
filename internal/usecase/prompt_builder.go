package usecase

import (
	"fmt"
	"strings"

	"doc-qa/internal/domain"
)

const systemPrompt = "You are a document Q&A assistant. Answer ONLY using the provided document excerpts. " +
	"If the excerpts do not contain the answer, say you don't know. " +
	"Keep the answer concise and factual. Provide no outside knowledge."

// PromptBuilder builds the chat messages sent to the LLM.
type PromptBuilder interface {
	Build(question string, contexts []domain.RetrievedContext) []domain.Message
}

// GroundedPromptBuilder produces a system turn that forbids outside knowledge and
// a user turn carrying the question followed by page-labelled excerpts.
type GroundedPromptBuilder struct{}

func NewGroundedPromptBuilder() PromptBuilder {
	return &GroundedPromptBuilder{}
}

// Build renders the Messages for the Chat API.
func (b *GroundedPromptBuilder) Build(question string, contexts []domain.RetrievedContext) []domain.Message {
	var sb strings.Builder
	sb.WriteString("Question:\n")
	sb.WriteString(question)
	sb.WriteString("\n\nDocument excerpts:\n")
	sb.WriteString(ContextBlock(contexts))
	sb.WriteString("\n\nInstructions:\n")
	sb.WriteString("- Answer using only the excerpts.\n")
	sb.WriteString("- If missing, say you don't know based on the document.\n")

	return []domain.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: sb.String()},
	}
}

// ContextBlock joins the non-empty excerpts in retrieval order, each headed by
// its page label and separated by a blank line.
func ContextBlock(contexts []domain.RetrievedContext) string {
	parts := make([]string, 0, len(contexts))
	for _, c := range contexts {
		if c.Chunk.Text == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[Page %d]\n%s", c.Chunk.Page, c.Chunk.Text))
	}
	return strings.Join(parts, "\n\n")
}
