package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/localchat/internal/model"
	"github.com/capitalize-ai/localchat/internal/store"
	"github.com/capitalize-ai/localchat/pkg/logger"
	"github.com/capitalize-ai/localchat/pkg/metrics"
)

// ConversationService handles conversation operations.
type ConversationService struct {
	store  store.Store
	events EventPublisher
	logger *logger.Logger
	now    func() time.Time
}

// NewConversationService creates a new conversation service. events may be nil.
func NewConversationService(st store.Store, events EventPublisher, log *logger.Logger) *ConversationService {
	if log == nil {
		log = logger.Nop()
	}
	return &ConversationService{
		store:  st,
		events: events,
		logger: log,
		now:    time.Now,
	}
}

// Create creates a new conversation owned by req.UserID.
func (s *ConversationService) Create(ctx context.Context, req *model.CreateConversationRequest) (*model.Conversation, error) {
	if err := invalid(
		"user_id", required(req.UserID, "user_id"),
		"model", required(req.Model, "model"),
		"title", ValidateTitle(req.Title),
	); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUser(ctx, req.UserID); err != nil {
		return nil, notFound(err, "user", req.UserID, "load user")
	}

	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    req.UserID,
		Model:     req.Model,
		Title:     req.Title,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, notFound(err, "user", req.UserID, "create conversation")
	}

	metrics.ConversationsTotal.Inc()
	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", conv.UserID),
		zap.String("model", conv.Model),
	)

	if s.events != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		_, err := s.events.PublishEvent(pubCtx, &model.ConversationEvent{
			ID:             uuid.Must(uuid.NewV7()).String(),
			ConversationID: conv.ID,
			Type:           model.EventTypeConversationCreated,
			Metadata:       map[string]any{"user_id": conv.UserID, "model": conv.Model},
			CreatedAt:      conv.CreatedAt,
		})
		if err != nil {
			s.logger.Warn("failed to publish event", zap.String("conversation_id", conv.ID), zap.Error(err))
		}
	}

	return conv, nil
}

// Get retrieves a conversation by ID.
func (s *ConversationService) Get(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, notFound(err, "conversation", id, "load conversation")
	}
	return conv, nil
}

// List returns conversations with their messages, optionally for one owner.
// An unknown owner has no conversations.
func (s *ConversationService) List(ctx context.Context, userID string) (*model.ListConversationsResponse, error) {
	convs, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	for i := range convs {
		if convs[i].Messages == nil {
			convs[i].Messages = []model.Message{}
		}
	}

	return &model.ListConversationsResponse{
		Conversations: convs,
		Total:         len(convs),
	}, nil
}
