package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/localchat/internal/model"
	"github.com/capitalize-ai/localchat/internal/service"
	"github.com/capitalize-ai/localchat/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	exchange *service.ExchangeService
	logger   *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(exchange *service.ExchangeService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		exchange: exchange,
		logger:   log,
	}
}

// List handles GET /api/v1/conversations/:id/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.exchange.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Submit handles POST /api/v1/conversations/:id/messages
// The assistant field is null when the model backend produced no reply.
func (h *MessageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.exchange.Submit(r.Context(), service.SubmitInput{
		ConversationID: chi.URLParam(r, "id"),
		Role:           req.Role,
		Content:        req.Content,
		Tokens:         req.Tokens,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}
