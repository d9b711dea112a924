// Package provider implements the LLM provider clients. Each client takes the
// full ordered message history plus tool declarations and returns one model
// turn: text and any requested tool calls. The session layer owns the loop
// that answers tool calls and re-invokes the model.
package provider

import (
	"context"
	"errors"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolDefinition describes a tool the model may invoke.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"` // JSON Schema for parameters
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult answers one ToolCall.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// Message is one entry of a conversation as the provider sees it.
// Assistant messages may carry tool calls; tool messages carry the results.
type Message struct {
	Role        Role
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// TurnRequest asks the provider for the next model turn.
type TurnRequest struct {
	System   string
	Messages []Message
	Tools    []ToolDefinition
}

// TurnResponse is one model turn.
type TurnResponse struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}

// Client is the provider interface: a single synchronous turn call. Provider
// failures are returned as errors and recovered at the session boundary.
type Client interface {
	// Name identifies the provider ("anthropic", "gemini", "openai").
	Name() string
	// Model returns the configured model identifier.
	Model() string
	// CompleteTurn sends the history and tools, returning the next turn.
	CompleteTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error)
}

// ErrNoAPIKey is returned by constructors when the provider key is missing.
var ErrNoAPIKey = errors.New("API key not configured")

// Options configures a provider client.
type Options struct {
	APIKey      string
	BaseURL     string // optional override (OpenRouter, Ollama, proxies)
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

const (
	defaultTimeout   = 2 * time.Minute
	defaultMaxTokens = 4096
)

func (o *Options) applyDefaults(model string) {
	if o.Model == "" {
		o.Model = model
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
}
