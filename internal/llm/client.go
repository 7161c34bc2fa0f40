// Package llm defines the completion client interface and providers.
package llm

import (
	"context"
	"time"
)

// Role constants for messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Message is a single turn in a conversation. Assistant turns that requested
// tools carry ToolCalls; RoleTool turns answer one of them via ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
}

// ToolDefinition describes a tool the model can invoke.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema string `json:"inputSchema"` // JSON Schema string
}

// CompletionRequest is the input to a Complete call.
type CompletionRequest struct {
	Model       string           `json:"model,omitempty"`
	System      string           `json:"system,omitempty"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	MaxTokens   int              `json:"maxTokens,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
}

// CompletionResponse is the result of a completion.
type CompletionResponse struct {
	Content    string        `json:"content"`
	StopReason string        `json:"stopReason,omitempty"`
	ToolCalls  []ToolCall    `json:"toolCalls,omitempty"`
	Usage      Usage         `json:"usage"`
	Model      string        `json:"model,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// ToolCall is a model request to invoke a tool.
type ToolCall struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input string `json:"input"` // JSON string
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Client is the interface all completion providers must implement.
type Client interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name (e.g., "openai", "mock").
	Name() string
}
