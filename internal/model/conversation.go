// Package model defines data structures for the chat backend.
package model

import (
	"time"
)

// Conversation represents a conversation thread bound to one model tag.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Model     string    `json:"model"`
	Title     *string   `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Populated by listings only.
	Messages []Message `json:"messages,omitempty"`
}

// CreateConversationRequest is the request to create a new conversation.
type CreateConversationRequest struct {
	UserID string  `json:"user_id"`
	Model  string  `json:"model"`
	Title  *string `json:"title,omitempty"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}
