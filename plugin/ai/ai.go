// Package ai defines the service interfaces the intelligence engine consumes.
// Implementations live in server/ai; mocks live next to their consumers.
package ai

import "context"

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// CompletionService is the completion side of the AI provider.
type CompletionService interface {
	// Complete performs a chat completion and returns the raw text.
	Complete(ctx context.Context, messages []Message) (string, error)

	// CompleteJSON performs a chat completion that is expected to return a
	// JSON document, and decodes it into out. Markdown code fences around
	// the JSON are tolerated.
	CompleteJSON(ctx context.Context, messages []Message, out any) error
}

// EmbeddingService generates embedding vectors for text.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SystemPrompt creates a system message.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}
