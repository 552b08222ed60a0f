// Package llm defines the Provider interface for language model backends.
//
// Both call sites in the interview flow (question generation, answer
// grading) are single-shot completions with short outputs, so the contract
// is a blocking Complete call rather than a token stream.
//
// Implementations must be safe for concurrent use and must propagate
// context cancellation promptly.
package llm

import "context"

// Message represents a single message in a conversation history.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// CompletionRequest carries everything the model needs to produce a reply.
// Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. The last message is typically
	// from the "user" role and drives the response.
	Messages []Message

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation history.
	SystemPrompt string

	// Temperature controls output randomness in [0.0, 2.0]. Zero means the
	// provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means the provider default.
	MaxTokens int
}

// CompletionResponse is the model's full reply.
type CompletionResponse struct {
	// Content is the text of the reply.
	Content string

	// PromptTokens and CompletionTokens hold token accounting when the
	// backend reports it; zero otherwise.
	PromptTokens     int
	CompletionTokens int
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails or ctx is cancelled first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
