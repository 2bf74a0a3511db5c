package session

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType tags a typed content block inside a message.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock lets a single turn carry a multi-step tool exchange: the
// assistant's text, the tool invocations it issued and the results fed back.
type ContentBlock struct {
	Type     BlockType       `json:"type"`
	Text     string          `json:"text,omitempty"`
	ToolName string          `json:"tool_name,omitempty"`
	ToolArgs json.RawMessage `json:"tool_args,omitempty"`
	Result   string          `json:"result,omitempty"`
	IsError  bool            `json:"is_error,omitempty"`
}

// Metadata captures per-reply bookkeeping surfaced to the caller.
type Metadata struct {
	ProductsFound int      `json:"products_found"`
	ToolsUsed     []string `json:"tools_used"`
	TokensUsed    int      `json:"tokens_used"`
	ProviderName  string   `json:"provider_name"`
}

// Message is one conversation entry. System-context messages survive pruning
// preferentially.
type Message struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Blocks    []ContentBlock `json:"blocks,omitempty"`
	System    bool           `json:"system,omitempty"`
	Metadata  *Metadata      `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ShippingMode is one shipping option as the backend describes it.
type ShippingMode struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// CheckoutState tracks the conversation's progress through the checkout
// protocol. Mutated only by the orchestration engine.
type CheckoutState struct {
	// ActiveCartID is created lazily on the first cart-mutating tool call
	// and cleared once an order is placed; a cart never survives its order.
	ActiveCartID string
	// ShippingModes is the most recently fetched option list, kept for
	// fuzzy code correction.
	ShippingModes []ShippingMode
	// LastOrderCode is extracted opportunistically from recent messages.
	LastOrderCode string
}

// Conversation owns the ordered message history and the checkout state. All
// access goes through the Store.
type Conversation struct {
	ID        string
	OwnerID   string
	Messages  []Message
	Checkout  CheckoutState
	CreatedAt time.Time
	UpdatedAt time.Time
}
