package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/capitalize-ai/localchat/internal/llm"
	"github.com/capitalize-ai/localchat/internal/middleware"
	"github.com/capitalize-ai/localchat/internal/model"
	"github.com/capitalize-ai/localchat/internal/service"
	"github.com/capitalize-ai/localchat/internal/store/memory"
)

type testServer struct {
	*httptest.Server
	token string
}

func newTestServer(t *testing.T, backend llm.Client, authRequired bool) *testServer {
	t.Helper()

	st := memory.New()
	tokens := middleware.NewTokens("test-secret", time.Hour)
	h := NewRouter(Deps{
		Tokens:        tokens,
		Users:         service.NewUserService(st, tokens, nil).WithBcryptCost(bcrypt.MinCost),
		Conversations: service.NewConversationService(st, nil, nil),
		Exchange:      service.NewExchangeService(st, backend, nil, time.Second, nil),
		Models:        backend,
		DefaultModel:  "llama3",
		AuthRequired:  authRequired,
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode)
	}
}

// setup signs up a user and creates one conversation.
func (s *testServer) setup(t *testing.T) (*model.User, *model.Conversation) {
	t.Helper()

	resp := s.do(t, http.MethodPost, "/api/v1/users", &model.SignupRequest{Name: "Ada", Email: "ada@example.com", Password: "correct horse"})
	expectStatus(t, resp, http.StatusCreated)
	signup := decode[model.SignupResponse](t, resp)

	resp = s.do(t, http.MethodPost, "/api/v1/conversations", &model.CreateConversationRequest{UserID: signup.User.ID, Model: "llama3"})
	expectStatus(t, resp, http.StatusCreated)
	conv := decode[model.Conversation](t, resp)

	return signup.User, &conv
}

func TestMessageExchange(t *testing.T) {
	srv := newTestServer(t, llm.NewStaticClient("Hello back"), false)
	user, conv := srv.setup(t)

	resp := srv.do(t, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/messages", &model.SubmitMessageRequest{Role: model.RoleUser, Content: "Hello"})
	expectStatus(t, resp, http.StatusCreated)
	exchange := decode[model.SubmitMessageResponse](t, resp)
	if exchange.User == nil || exchange.User.Content != "Hello" {
		t.Fatalf("unexpected user message: %+v", exchange.User)
	}
	if exchange.Assistant == nil || exchange.Assistant.Content != "Hello back" {
		t.Fatalf("unexpected assistant message: %+v", exchange.Assistant)
	}

	resp = srv.do(t, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", nil)
	expectStatus(t, resp, http.StatusOK)
	list := decode[model.ListMessagesResponse](t, resp)
	if len(list.Messages) != 2 || list.Messages[0].Role != model.RoleUser || list.Messages[1].Role != model.RoleAssistant {
		t.Fatalf("unexpected messages: %+v", list.Messages)
	}

	resp = srv.do(t, http.MethodGet, "/api/v1/users/"+user.ID+"/conversations", nil)
	expectStatus(t, resp, http.StatusOK)
	convs := decode[model.ListConversationsResponse](t, resp)
	if convs.Total != 1 || len(convs.Conversations[0].Messages) != 2 {
		t.Fatalf("unexpected conversations: %+v", convs)
	}

	resp = srv.do(t, http.MethodGet, "/api/v1/conversations?user_id="+user.ID, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = srv.do(t, http.MethodGet, "/api/v1/conversations/"+conv.ID, nil)
	expectStatus(t, resp, http.StatusOK)
}

func TestMessageExchangeBackendDown(t *testing.T) {
	srv := newTestServer(t, llm.NewFailingClient(errors.New("connection refused")), false)
	_, conv := srv.setup(t)

	resp := srv.do(t, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/messages", &model.SubmitMessageRequest{Role: model.RoleUser, Content: "Hello"})
	expectStatus(t, resp, http.StatusCreated)

	var raw map[string]json.RawMessage
	json.NewDecoder(resp.Body).Decode(&raw)
	if string(raw["assistant"]) != "null" {
		t.Errorf("expected null assistant, got %s", raw["assistant"])
	}
}

func TestErrorResponses(t *testing.T) {
	srv := newTestServer(t, llm.NewStaticClient("ok"), false)
	_, conv := srv.setup(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"empty content", http.MethodPost, "/api/v1/conversations/" + conv.ID + "/messages", &model.SubmitMessageRequest{Role: model.RoleUser}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad role", http.MethodPost, "/api/v1/conversations/" + conv.ID + "/messages", &model.SubmitMessageRequest{Role: "bot", Content: "x"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown conversation", http.MethodPost, "/api/v1/conversations/0190a0a0-0000-7000-8000-000000000000/messages", &model.SubmitMessageRequest{Role: model.RoleUser, Content: "x"}, http.StatusNotFound, "NOT_FOUND"},
		{"malformed conversation id", http.MethodGet, "/api/v1/conversations/not-a-uuid/messages", nil, http.StatusNotFound, "NOT_FOUND"},
		{"duplicate signup", http.MethodPost, "/api/v1/users", &model.SignupRequest{Email: "ada@example.com", Password: "correct horse"}, http.StatusConflict, "CONFLICT"},
		{"wrong password", http.MethodPost, "/api/v1/auth/login", &model.LoginRequest{Email: "ada@example.com", Password: "wrong horse"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"me without token", http.MethodGet, "/api/v1/auth/me", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown user", http.MethodPost, "/api/v1/conversations", &model.CreateConversationRequest{UserID: "ghost", Model: "llama3"}, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.do(t, tt.method, tt.path, tt.body)
			expectStatus(t, resp, tt.status)
			body := decode[model.ErrorResponse](t, resp)
			if body.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, body.Code)
			}
			if body.RequestID == "" {
				t.Error("expected request_id")
			}
		})
	}

	// Nothing was stored by the rejected submissions.
	resp := srv.do(t, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", nil)
	if list := decode[model.ListMessagesResponse](t, resp); len(list.Messages) != 0 {
		t.Errorf("expected no messages, got %d", len(list.Messages))
	}
}

func TestLoginAndAuthRequired(t *testing.T) {
	srv := newTestServer(t, llm.NewStaticClient("ok"), true)

	resp := srv.do(t, http.MethodPost, "/api/v1/users", &model.SignupRequest{Email: "ada@example.com", Password: "correct horse"})
	expectStatus(t, resp, http.StatusCreated)

	resp = srv.do(t, http.MethodGet, "/api/v1/conversations", nil)
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = srv.do(t, http.MethodPost, "/api/v1/auth/login", &model.LoginRequest{Email: "ada@example.com", Password: "correct horse"})
	expectStatus(t, resp, http.StatusOK)
	login := decode[model.LoginResponse](t, resp)
	srv.token = login.Token

	resp = srv.do(t, http.MethodGet, "/api/v1/auth/me", nil)
	expectStatus(t, resp, http.StatusOK)
	if me := decode[model.MeResponse](t, resp); me.User.ID != login.User.ID {
		t.Errorf("expected %s, got %s", login.User.ID, me.User.ID)
	}

	// The owner defaults to the authenticated user.
	resp = srv.do(t, http.MethodPost, "/api/v1/conversations", &model.CreateConversationRequest{Model: "llama3"})
	expectStatus(t, resp, http.StatusCreated)
	if conv := decode[model.Conversation](t, resp); conv.UserID != login.User.ID {
		t.Errorf("expected owner %s, got %s", login.User.ID, conv.UserID)
	}
}

func TestStreamExchange(t *testing.T) {
	srv := newTestServer(t, llm.NewStaticClient("one two"), false)
	_, conv := srv.setup(t)

	resp := srv.do(t, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/stream", &model.SubmitMessageRequest{Role: model.RoleUser, Content: "count"})
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}

	var events []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, name)
		}
	}

	want := []string{"user_message", "token", "token", "message_complete", "done"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("expected events %v, got %v", want, events)
	}
}

func TestStreamRejectsBeforeStreaming(t *testing.T) {
	srv := newTestServer(t, llm.NewStaticClient("ok"), false)
	_, conv := srv.setup(t)

	resp := srv.do(t, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/stream", &model.SubmitMessageRequest{Role: model.RoleUser})
	expectStatus(t, resp, http.StatusBadRequest)
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error, got %q", ct)
	}
}

func TestOpsEndpoints(t *testing.T) {
	srv := newTestServer(t, llm.NewStaticClient("ok"), false)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		resp := srv.do(t, http.MethodGet, path, nil)
		expectStatus(t, resp, http.StatusOK)
	}

	resp := srv.do(t, http.MethodGet, "/api/v1/models", nil)
	expectStatus(t, resp, http.StatusOK)
	models := decode[struct {
		Models  []string `json:"models"`
		Default string   `json:"default"`
	}](t, resp)
	if models.Default != "llama3" || len(models.Models) == 0 {
		t.Errorf("unexpected models response: %+v", models)
	}
}
