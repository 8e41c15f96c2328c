// Package service provides business logic for the chat backend.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/localchat/internal/llm"
	"github.com/capitalize-ai/localchat/internal/model"
	"github.com/capitalize-ai/localchat/internal/store"
	"github.com/capitalize-ai/localchat/pkg/logger"
	"github.com/capitalize-ai/localchat/pkg/metrics"
	"github.com/capitalize-ai/localchat/pkg/tracing"
)

// DefaultLLMTimeout bounds a backend call when no timeout is configured.
const DefaultLLMTimeout = 60 * time.Second

const publishTimeout = 5 * time.Second

// EventPublisher receives stored messages and conversation events.
// Publishing is best effort and never changes the outcome of a call.
type EventPublisher interface {
	PublishMessage(ctx context.Context, msg *model.Message) (uint64, error)
	PublishEvent(ctx context.Context, event *model.ConversationEvent) (uint64, error)
}

// SubmitInput is a message submitted to a conversation.
type SubmitInput struct {
	ConversationID string
	Role           model.Role
	Content        string
	Tokens         *int
}

// StreamObserver receives progress from SubmitStream. Either field may be nil.
type StreamObserver struct {
	// Stored is called once the submitted message is stored, before the
	// backend is called.
	Stored func(msg *model.Message)
	// Token receives reply deltas as they arrive. An error stops
	// forwarding but not the exchange.
	Token llm.StreamCallback
}

// ExchangeService stores submitted messages and, for user messages,
// obtains and stores the model's reply.
type ExchangeService struct {
	store   store.Store
	backend llm.Client
	events  EventPublisher
	timeout time.Duration
	logger  *logger.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewExchangeService creates a new exchange service. events may be nil.
func NewExchangeService(st store.Store, backend llm.Client, events EventPublisher, timeout time.Duration, log *logger.Logger) *ExchangeService {
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ExchangeService{
		store:   st,
		backend: backend,
		events:  events,
		timeout: timeout,
		logger:  log,
		tracer:  tracing.Tracer("localchat/service"),
		now:     time.Now,
	}
}

// WithClock replaces the clock used to stamp new messages.
func (s *ExchangeService) WithClock(now func() time.Time) *ExchangeService {
	s.now = now
	return s
}

// Submit stores the message and, when it is a user message, the model's
// reply. A backend failure is not an error: the result's Assistant is nil.
func (s *ExchangeService) Submit(ctx context.Context, in SubmitInput) (*model.SubmitMessageResponse, error) {
	return s.SubmitStream(ctx, in, StreamObserver{})
}

// SubmitStream is Submit, reporting progress to obs as it happens.
func (s *ExchangeService) SubmitStream(ctx context.Context, in SubmitInput, obs StreamObserver) (*model.SubmitMessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "exchange.submit", trace.WithAttributes(
		attribute.String("conversation.id", in.ConversationID),
		attribute.String("message.role", string(in.Role)),
	))
	defer span.End()

	if err := invalid(
		"role", ValidateRole(in.Role),
		"content", ValidateMessageContent(in.Content),
	); err != nil {
		return nil, err
	}

	conv, err := s.store.GetConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, notFound(err, "conversation", in.ConversationID, "load conversation")
	}

	userMsg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		Role:           in.Role,
		Content:        in.Content,
		Tokens:         in.Tokens,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, userMsg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store user message")
		return nil, notFound(err, "conversation", conv.ID, "store message")
	}
	s.stored(ctx, userMsg)
	if obs.Stored != nil {
		obs.Stored(userMsg)
	}

	resp := &model.SubmitMessageResponse{User: userMsg}
	if in.Role != model.RoleUser {
		return resp, nil
	}

	reply := s.generate(ctx, conv, in.Content, obs.Token)
	if reply == nil {
		return resp, nil
	}

	assistant := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		Role:           model.RoleAssistant,
		Content:        reply.Content,
		Model:          &reply.Model,
		LatencyMs:      &reply.LatencyMs,
		CreatedAt:      s.now().UTC(),
	}
	if reply.TokensOut > 0 {
		tokens := reply.TokensOut
		assistant.Tokens = &tokens
	}
	if err := s.store.CreateMessage(context.WithoutCancel(ctx), assistant); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store assistant message")
		s.logger.Error("failed to store assistant message",
			zap.String("conversation_id", conv.ID),
			zap.String("user_message_id", userMsg.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}
	s.stored(ctx, assistant)

	resp.Assistant = assistant
	return resp, nil
}

// generate asks the backend for a reply to prompt. It returns nil when the
// backend fails, times out, or produces no text.
func (s *ExchangeService) generate(ctx context.Context, conv *model.Conversation, prompt string, onToken llm.StreamCallback) *llm.CompletionResponse {
	// The caller going away must not abandon an exchange whose user
	// message is already stored.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("llm.model", conv.Model),
	))
	defer span.End()

	var forward llm.StreamCallback
	if onToken != nil {
		forwarding := true
		forward = func(token string, index int) error {
			if !forwarding {
				return nil
			}
			if err := onToken(token, index); err != nil {
				forwarding = false
				s.logger.Debug("stopped forwarding tokens",
					zap.String("conversation_id", conv.ID), zap.Error(err))
			}
			return nil
		}
	}

	start := time.Now()
	resp, err := s.backend.CompleteStream(ctx, &llm.CompletionRequest{
		Model:  conv.Model,
		Prompt: prompt,
	}, forward)
	elapsed := time.Since(start)

	if err == nil && (resp == nil || resp.Content == "") {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		reason := failureReason(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)

		metrics.RecordLLMCall(conv.Model, "error", elapsed.Seconds(), 0, 0)
		metrics.RecordBackendFailure(conv.Model, reason)
		s.logger.Warn("model backend unavailable",
			zap.String("conversation_id", conv.ID),
			zap.String("model", conv.Model),
			zap.String("reason", reason),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		s.publishEvent(ctx, &model.ConversationEvent{
			ID:             uuid.Must(uuid.NewV7()).String(),
			ConversationID: conv.ID,
			Type:           model.EventTypeBackendUnavailable,
			Reason:         err.Error(),
			Metadata:       map[string]any{"model": conv.Model, "kind": reason},
			CreatedAt:      s.now().UTC(),
		})
		return nil
	}

	if resp.Model == "" {
		resp.Model = conv.Model
	}
	if resp.LatencyMs == 0 {
		resp.LatencyMs = elapsed.Milliseconds()
	}
	metrics.RecordLLMCall(resp.Model, "success", elapsed.Seconds(), resp.TokensIn, resp.TokensOut)
	span.SetAttributes(attribute.Int("llm.tokens_out", resp.TokensOut))
	return resp
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, llm.ErrEmptyResponse):
		return "empty"
	default:
		return "error"
	}
}

// List returns a conversation's messages in conversation order.
func (s *ExchangeService) List(ctx context.Context, conversationID string) (*model.ListMessagesResponse, error) {
	if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
		return nil, notFound(err, "conversation", conversationID, "load conversation")
	}

	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return &model.ListMessagesResponse{Messages: msgs}, nil
}

func (s *ExchangeService) stored(ctx context.Context, msg *model.Message) {
	metrics.MessagesTotal.WithLabelValues(string(msg.Role)).Inc()
	if s.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if _, err := s.events.PublishMessage(ctx, msg); err != nil {
		s.logger.Warn("failed to publish message",
			zap.String("message_id", msg.ID), zap.Error(err))
	}
}

func (s *ExchangeService) publishEvent(ctx context.Context, event *model.ConversationEvent) {
	if s.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if _, err := s.events.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("conversation_id", event.ConversationID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}
