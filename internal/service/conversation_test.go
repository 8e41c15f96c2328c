package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/capitalize-ai/localchat/internal/llm"
	"github.com/capitalize-ai/localchat/internal/model"
	"github.com/capitalize-ai/localchat/internal/store/memory"
)

func strPtr(s string) *string { return &s }

func TestConversationCreate(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	st.CreateUser(ctx, &model.User{ID: "u1", Email: "ada@example.com", CreatedAt: time.Now()})
	events := &recordingPublisher{}
	svc := NewConversationService(st, events, nil)

	tests := []struct {
		name      string
		req       model.CreateConversationRequest
		wantField string
		notFound  bool
	}{
		{name: "missing user", req: model.CreateConversationRequest{Model: "llama3"}, wantField: "user_id"},
		{name: "missing model", req: model.CreateConversationRequest{UserID: "u1"}, wantField: "model"},
		{name: "long title", req: model.CreateConversationRequest{UserID: "u1", Model: "llama3", Title: strPtr(strings.Repeat("x", 257))}, wantField: "title"},
		{name: "unknown user", req: model.CreateConversationRequest{UserID: "ghost", Model: "llama3"}, notFound: true},
		{name: "valid", req: model.CreateConversationRequest{UserID: "u1", Model: "llama3", Title: strPtr("Trip plans")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv, err := svc.Create(ctx, &tt.req)

			switch {
			case tt.wantField != "":
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if _, ok := verr.Fields[tt.wantField]; !ok {
					t.Errorf("expected field %q in %v", tt.wantField, verr.Fields)
				}
			case tt.notFound:
				var nf *NotFoundError
				if !errors.As(err, &nf) || nf.Resource != "user" {
					t.Fatalf("expected user NotFoundError, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if conv.ID == "" || conv.Model != "llama3" || *conv.Title != "Trip plans" {
					t.Errorf("unexpected conversation: %+v", conv)
				}
			}
		})
	}

	if len(events.events) != 1 || events.events[0].Type != model.EventTypeConversationCreated {
		t.Errorf("expected one conversation_created event, got %+v", events.events)
	}
}

func TestConversationListAndGet(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	st.CreateUser(ctx, &model.User{ID: "u1", Email: "ada@example.com"})
	st.CreateUser(ctx, &model.User{ID: "u2", Email: "bob@example.com"})

	convs := NewConversationService(st, nil, nil)
	exchange := NewExchangeService(st, llm.NewStaticClient("hello"), nil, time.Second, nil)

	mine, err := convs.Create(ctx, &model.CreateConversationRequest{UserID: "u1", Model: "llama3"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := convs.Create(ctx, &model.CreateConversationRequest{UserID: "u2", Model: "llama3"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := exchange.Submit(ctx, SubmitInput{ConversationID: mine.ID, Role: model.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	all, err := convs.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if all.Total != 2 {
		t.Errorf("expected 2 conversations, got %d", all.Total)
	}

	own, _ := convs.List(ctx, "u1")
	if own.Total != 1 || len(own.Conversations[0].Messages) != 2 {
		t.Fatalf("expected one conversation with 2 messages, got %+v", own)
	}
	if own.Conversations[0].Messages[0].Role != model.RoleUser {
		t.Errorf("expected user message first")
	}

	none, _ := convs.List(ctx, "nobody")
	if none.Total != 0 || none.Conversations == nil {
		t.Errorf("expected empty non-nil list, got %+v", none)
	}

	got, err := convs.Get(ctx, mine.ID)
	if err != nil || got.ID != mine.ID {
		t.Errorf("Get: %v, %+v", err, got)
	}
	var nf *NotFoundError
	if _, err := convs.Get(ctx, "missing"); !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}
