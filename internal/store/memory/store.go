// Package memory provides an in-process Store for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/capitalize-ai/localchat/internal/model"
	"github.com/capitalize-ai/localchat/internal/store"
)

// Store keeps every record in maps guarded by one RWMutex.
type Store struct {
	mu            sync.RWMutex
	users         map[string]*model.User
	emails        map[string]string
	conversations map[string]*model.Conversation
	messages      map[string][]*model.Message
	seq           uint64
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:         make(map[string]*model.User),
		emails:        make(map[string]string),
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string][]*model.Message),
	}
}

func emailKey(email string) string {
	return strings.ToLower(email)
}

// CreateUser stores a copy of user.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(user.Email)
	if _, exists := s.emails[key]; exists {
		return store.ErrConflict
	}
	if _, exists := s.users[user.ID]; exists {
		return store.ErrConflict
	}

	u := *user
	s.users[u.ID] = &u
	s.emails[key] = u.ID
	return nil
}

// GetUser returns the user with id.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *u
	return &out, nil
}

// GetUserByEmail returns the user with email, compared case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[emailKey(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *s.users[id]
	return &out, nil
}

// CreateConversation stores conv; its owner must exist.
func (s *Store) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[conv.UserID]; !ok {
		return store.ErrNotFound
	}
	if _, exists := s.conversations[conv.ID]; exists {
		return store.ErrConflict
	}

	c := *conv
	c.Messages = nil
	s.conversations[c.ID] = &c
	return nil
}

// GetConversation returns the conversation with id, without messages.
func (s *Store) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *c
	return &out, nil
}

// ListConversations returns conversations with their messages.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		if userID != "" && c.UserID != userID {
			continue
		}
		conv := *c
		conv.Messages = s.sortedMessages(c.ID)
		out = append(out, conv)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateMessage appends msg and assigns its sequence.
func (s *Store) CreateMessage(ctx context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[msg.ConversationID]; !ok {
		return store.ErrNotFound
	}

	s.seq++
	msg.Sequence = s.seq

	m := *msg
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], &m)
	return nil
}

// ListMessages returns a conversation's messages in conversation order.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedMessages(conversationID), nil
}

// sortedMessages copies and orders messages; callers hold at least a read lock.
// Writers stamp CreatedAt before taking the lock, so append order alone can
// disagree with creation order.
func (s *Store) sortedMessages(conversationID string) []model.Message {
	src := s.messages[conversationID]
	out := make([]model.Message, len(src))
	for i, m := range src {
		out[i] = *m
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Before(&out[j])
	})
	return out
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
