// Package store defines the durable store used by the services.
package store

import (
	"context"
	"errors"

	"github.com/capitalize-ai/localchat/internal/model"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("store: conflict")
)

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// ConversationStore persists conversations.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *model.Conversation) error
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	// ListConversations returns conversations ordered by creation time, each
	// with its messages in conversation order. An empty userID lists all.
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)
}

// MessageStore persists messages. Messages are append-only.
type MessageStore interface {
	// CreateMessage inserts msg and sets its Sequence. It returns
	// ErrNotFound when the conversation does not exist.
	CreateMessage(ctx context.Context, msg *model.Message) error
	// ListMessages returns a conversation's messages ordered by
	// CreatedAt, then Sequence.
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
}

// Store is the full durable store.
type Store interface {
	UserStore
	ConversationStore
	MessageStore

	Ping(ctx context.Context) error
	Close() error
}
