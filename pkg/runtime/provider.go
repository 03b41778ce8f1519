// Package runtime executes agent conversations: it drives an LLM
// provider in a tool-use loop, routes tool calls to MCP servers, and
// delegates Task calls to restricted subagent sessions.
package runtime

import (
	"context"
	"encoding/json"
)

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolUse is set when the assistant requested tool calls.
	ToolUse []ToolUseBlock `json:"tool_use,omitempty"`

	// ToolResult carries tool execution results back to the model.
	// Multiple entries answer parallel tool calls.
	ToolResult []ToolResultBlock `json:"tool_result,omitempty"`
}

// ToolUseBlock is a tool call requested by the model.
type ToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResultBlock is the outcome of one tool call.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ToolDefinition declares a callable tool to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// StopReason is why the model stopped generating.
type StopReason string

const (
	StopReasonEndTurn   StopReason = "end_turn"
	StopReasonToolUse   StopReason = "tool_use"
	StopReasonMaxTokens StopReason = "max_tokens"
)

// Usage is token accounting for one or more model calls.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates usage across calls.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Response is one model completion.
type Response struct {
	Content    string
	ToolCalls  []ToolUseBlock
	StopReason StopReason
	Usage      Usage
}

// Provider is an LLM backend. Implementations must be safe for
// concurrent use; sessions for the coordinator and its subagents may
// run in parallel.
type Provider interface {
	// Chat sends a conversation to the given model and returns the
	// complete response.
	Chat(ctx context.Context, model string, systemPrompt string, messages []Message, tools []ToolDefinition) (*Response, error)

	// Name identifies the provider for logging.
	Name() string
}
