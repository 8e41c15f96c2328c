package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message represents a conversation message. Messages are immutable once stored.
type Message struct {
	// Identity
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`

	// Content
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Tokens  *int   `json:"tokens,omitempty"`

	// LLM metadata, assistant messages only
	Model     *string `json:"model,omitempty"`
	LatencyMs *int64  `json:"latency_ms,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Insertion sequence assigned by the store; breaks created_at ties.
	Sequence uint64 `json:"sequence,omitempty"`
}

// Before reports whether m sorts before o in conversation order.
func (m *Message) Before(o *Message) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.Before(o.CreatedAt)
	}
	return m.Sequence < o.Sequence
}

// SubmitMessageRequest is the request to submit a message to a conversation.
type SubmitMessageRequest struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Tokens  *int   `json:"tokens,omitempty"`
}

// SubmitMessageResponse is the response after a message exchange.
// Assistant is null when the model backend produced no reply.
type SubmitMessageResponse struct {
	User      *Message `json:"user"`
	Assistant *Message `json:"assistant"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

// TokenEvent represents a streaming token event.
type TokenEvent struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

// MessageCompleteEvent represents a message completion event.
type MessageCompleteEvent struct {
	Message  Message `json:"message"`
	Sequence uint64  `json:"sequence"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error      string            `json:"error"`
	Code       string            `json:"code"`
	Fields     map[string]string `json:"fields,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	RetryAfter int               `json:"retry_after,omitempty"`
}

// ErrorEvent represents an error event.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
