package provider

import (
	"context"
	"encoding/json"
	"errors"
)

// Client names an LLM provider implementation.
type Client string

const (
	Anthropic Client = "anthropic"
	OpenAI    Client = "openai"
)

// ToolDefinition is the schema advertised to the model for one callable
// capability.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ContentBlock is one piece of a conversation turn. Type is "text",
// "tool_use" or "tool_result".
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	// tool_use fields
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
	// tool_result fields
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// Message is one ordered turn in the conversation.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextMessage builds a plain text turn.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Type: "text", Text: text}}}
}

// ToolResultMessage builds a user turn carrying tool execution results.
func ToolResultMessage(results []ContentBlock) Message {
	return Message{Role: "user", Content: results}
}

// Request is a single call to the language-model provider.
type Request struct {
	System   string
	Messages []Message
	Tools    []ToolDefinition
}

// ToolCall is a tool invocation the model requested.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// Reply is the model's response: either a final text or one or more tool
// invocation requests.
type Reply struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
	// Raw content blocks, replayed verbatim as the assistant turn when the
	// conversation continues after tool execution.
	Content []ContentBlock
}

// WantsTools reports whether the model requested tool execution.
func (r Reply) WantsTools() bool { return len(r.ToolCalls) > 0 }

// Provider is the interface every LLM implementation must satisfy.
type Provider interface {
	Generate(ctx context.Context, req Request) (Reply, error)
}

// ErrNotImplemented marks provider types that are declared but not wired.
var ErrNotImplemented = errors.New("provider not implemented")
