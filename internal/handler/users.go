package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/localchat/internal/middleware"
	"github.com/capitalize-ai/localchat/internal/model"
	"github.com/capitalize-ai/localchat/internal/service"
	"github.com/capitalize-ai/localchat/pkg/logger"
)

// UserHandler handles signup, login and per-user endpoints.
type UserHandler struct {
	users         *service.UserService
	conversations *service.ConversationService
	logger        *logger.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users *service.UserService, convs *service.ConversationService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		users:         users,
		conversations: convs,
		logger:        log,
	}
}

// Signup handles POST /api/v1/users
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Signup(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, &model.SignupResponse{Success: true, User: user})
}

// Login handles POST /api/v1/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.users.Login(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/v1/auth/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.MeResponse{User: user})
}

// Conversations handles GET /api/v1/users/:userId/conversations
func (h *UserHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	resp, err := h.conversations.List(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
