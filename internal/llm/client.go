// Package llm is the language-model gateway: provider clients for Gemini,
// Bedrock and OpenAI behind one interface, plus a Gateway that walks an
// ordered list of models until one answers.
package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Request is a single completion call. JSON asks the provider for a bare
// JSON object when it supports a structured-output mode.
type Request struct {
	Model       string
	System      []string
	Messages    []Message
	MaxTokens   int32
	Temperature float32
	JSON        bool
}

type Response struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// Client is implemented by every provider.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
