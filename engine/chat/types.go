package chat

import (
	"time"

	"github.com/shopmind/shopmind/engine/session"
)

// Request is one inbound chat turn, as delivered by the transport layer.
// IsAuthenticated is carried on the request and is the only source of truth
// for tool gating; it is never inferred from conversation content.
type Request struct {
	Message           string `json:"message"`
	ConversationID    string `json:"conversation_id,omitempty"`
	CallerID          string `json:"caller_id,omitempty"`
	IsAuthenticated   bool   `json:"is_authenticated,omitempty"`
	CallerAccessToken string `json:"-"`
	Provider          string `json:"provider,omitempty"`
}

// Response is the assistant's reply plus per-turn bookkeeping.
type Response struct {
	ConversationID string           `json:"conversation_id"`
	Message        string           `json:"message"`
	Metadata       session.Metadata `json:"metadata"`
	// ReauthRequired signals an expired session so clients can prompt a
	// fresh login instead of retrying the message.
	ReauthRequired bool `json:"reauth_required,omitempty"`
}

// Options tunes the orchestration engine.
type Options struct {
	Provider      string
	Model         string
	APIKey        string
	BaseURL       string
	Temperature   float64
	MaxTokens     int
	HistoryWindow int
	TurnTimeout   time.Duration
}

func DefaultOptions() Options {
	return Options{
		Provider:      "openai",
		Model:         "gpt-4o-mini",
		Temperature:   0.2,
		MaxTokens:     1024,
		HistoryWindow: 10,
		TurnTimeout:   120 * time.Second,
	}
}

const (
	// placeholderReply covers the provider returning empty text; an empty
	// reply is never surfaced.
	placeholderReply = "I'm sorry, I could not come up with an answer this time. Could you rephrase your request?"

	// apologyReply covers a completion-provider fault. The user's message
	// stays in history so the next turn has full context.
	apologyReply = "I'm sorry, something went wrong on my side. Please try again in a moment."

	// reauthReply covers authentication expiry detected in tool errors.
	reauthReply = "Your session has expired. Please log in again to continue."
)
