package memory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/capitalize-ai/localchat/internal/model"
	"github.com/capitalize-ai/localchat/internal/store"
	"github.com/capitalize-ai/localchat/internal/store/memory"
)

func seed(t *testing.T, s *memory.Store) (*model.User, *model.Conversation) {
	t.Helper()
	ctx := context.Background()

	user := &model.User{ID: "u1", Email: "Ada@example.com", CreatedAt: time.Now()}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	conv := &model.Conversation{ID: "c1", UserID: user.ID, Model: "llama3", CreatedAt: time.Now()}
	if err := s.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	return user, conv
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s)

	if _, err := s.GetUserByEmail(ctx, "ada@EXAMPLE.com"); err != nil {
		t.Errorf("expected case-insensitive email lookup, got %v", err)
	}

	dup := &model.User{ID: "u2", Email: "ada@example.com"}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReferentialIntegrity(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	conv := &model.Conversation{ID: "c1", UserID: "ghost", Model: "llama3"}
	if err := s.CreateConversation(ctx, conv); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown owner, got %v", err)
	}

	msg := &model.Message{ID: "m1", ConversationID: "c1", Role: model.RoleUser, Content: "hi"}
	if err := s.CreateMessage(ctx, msg); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown conversation, got %v", err)
	}
}

func TestListMessagesOrdersByCreatedAtThenSequence(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	_, conv := seed(t, s)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// Inserted out of creation order; the two at base+1s tie.
	for i, offset := range []int{2, 0, 1, 1} {
		msg := &model.Message{
			ID:             fmt.Sprintf("m%d", i),
			ConversationID: conv.ID,
			Role:           model.RoleUser,
			Content:        "x",
			CreatedAt:      base.Add(time.Duration(offset) * time.Second),
		}
		if err := s.CreateMessage(ctx, msg); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
		if msg.Sequence == 0 {
			t.Fatal("expected sequence to be assigned")
		}
	}

	msgs, err := s.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}

	want := []string{"m1", "m2", "m3", "m0"}
	for i, id := range want {
		if msgs[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, msgs[i].ID)
		}
	}
}

func TestListMessagesUnderConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	_, conv := seed(t, s)

	base := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.CreateMessage(ctx, &model.Message{
				ID:             fmt.Sprintf("m%d", i),
				ConversationID: conv.ID,
				Role:           model.RoleUser,
				Content:        "x",
				CreatedAt:      base.Add(time.Duration(50-i) * time.Millisecond),
			})
		}(i)
	}
	wg.Wait()

	msgs, _ := s.ListMessages(ctx, conv.ID)
	if len(msgs) != 50 {
		t.Fatalf("expected 50 messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Fatalf("messages out of order at %d", i)
		}
	}
}

func TestListConversations(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	user, conv := seed(t, s)

	other := &model.User{ID: "u2", Email: "bob@example.com"}
	s.CreateUser(ctx, other)
	s.CreateConversation(ctx, &model.Conversation{ID: "c2", UserID: other.ID, Model: "llama3", CreatedAt: time.Now()})
	s.CreateMessage(ctx, &model.Message{ID: "m1", ConversationID: conv.ID, Role: model.RoleUser, Content: "hi", CreatedAt: time.Now()})

	all, _ := s.ListConversations(ctx, "")
	if len(all) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(all))
	}

	mine, _ := s.ListConversations(ctx, user.ID)
	if len(mine) != 1 || mine[0].ID != conv.ID {
		t.Fatalf("expected only %s, got %+v", conv.ID, mine)
	}
	if len(mine[0].Messages) != 1 {
		t.Errorf("expected eager messages, got %d", len(mine[0].Messages))
	}
}
