package llmadapter

import (
	"context"
	"encoding/json"
	"fmt"
)

// Role constants for conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// LLMRequest is a provider-independent completion request.
type LLMRequest struct {
	SystemPrompt string
	Messages     []Message
	Tools        []ToolDefinition
	Options      CallOptions
}

// Message is one conversation entry sent to the provider.
type Message struct {
	Role    string
	Content string
	// ToolCalls carries tool calls emitted by the assistant.
	// Only messages with Role == "assistant" may contain ToolCalls.
	ToolCalls []ToolCall
	// ToolResults carries tool responses provided by the runtime.
	// Only messages with Role == "tool" may contain ToolResults.
	ToolResults []ToolResult
}

// ToolDefinition describes one tool offered to the provider.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema
}

// ToolCall is a tool invocation requested by the provider.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolResult is a tool's response payload fed back to the provider as a
// synthetic turn to obtain the final natural-language answer.
type ToolResult struct {
	ID      string
	Name    string
	Content string
	IsError bool
}

// CallOptions tunes one completion call. ToolChoice is "auto", "none" or a
// specific tool name to force.
type CallOptions struct {
	Temperature float64
	MaxTokens   int
	ToolChoice  string
}

// Usage reports token consumption for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMResponse is the provider's answer: text, requested tool calls, or both.
type LLMResponse struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string
	Usage      *Usage
}

// LLMClient is the completion-provider boundary.
type LLMClient interface {
	GenerateContent(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
	Close() error
}

// ValidateConversation asserts role-specific constraints:
// only assistant messages carry ToolCalls, only tool messages carry
// ToolResults. Catches wiring mistakes early.
func ValidateConversation(messages []Message) error {
	for i, m := range messages {
		if len(m.ToolCalls) > 0 && m.Role != RoleAssistant {
			return fmt.Errorf("message[%d] role %q cannot contain ToolCalls", i, m.Role)
		}
		if len(m.ToolResults) > 0 && m.Role != RoleTool {
			return fmt.Errorf("message[%d] role %q cannot contain ToolResults", i, m.Role)
		}
	}
	return nil
}
