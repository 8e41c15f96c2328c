package model

import (
	"time"
)

// EventType represents the type of conversation event.
type EventType string

const (
	EventTypeBackendUnavailable  EventType = "backend_unavailable"
	EventTypeConversationCreated EventType = "conversation_created"
)

// ConversationEvent represents an event in a conversation.
type ConversationEvent struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Type           EventType      `json:"type"`
	Reason         string         `json:"reason"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
