package ai

import "context"

// ChatProvider extends Provider with actual LLM chat completion capabilities.
type ChatProvider interface {
	Provider

	// Chat sends a chat completion request and returns the full response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest represents a chat completion request.
type ChatRequest struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
}

// Message represents a single message in the conversation.
type Message struct {
	Role    MessageRole
	Content string
}

// MessageRole defines the role of a message sender.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ChatResponse represents the response from a chat completion.
type ChatResponse struct {
	ID           string
	Model        string
	Text         string
	FinishReason FinishReason
	Usage        Usage
}

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop   FinishReason = "stop"
	FinishReasonLength FinishReason = "length"
	FinishReasonSafety FinishReason = "safety"
	FinishReasonError  FinishReason = "error"
)

// Usage tracks token consumption. Providers that do not report usage leave
// all counters at zero; callers estimate instead.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Reported returns true when the provider supplied real token counts.
func (u Usage) Reported() bool {
	return u.TotalTokens > 0 || u.PromptTokens > 0 || u.CompletionTokens > 0
}
