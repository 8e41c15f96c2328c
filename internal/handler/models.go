package handler

import (
	"net/http"

	"github.com/capitalize-ai/localchat/internal/llm"
)

// ModelsResponse lists the model tags the server can route.
type ModelsResponse struct {
	Models  []string `json:"models"`
	Default string   `json:"default"`
}

// ModelHandler handles the model catalogue endpoint.
type ModelHandler struct {
	client       llm.Client
	defaultModel string
}

// NewModelHandler creates a new model handler.
func NewModelHandler(client llm.Client, defaultModel string) *ModelHandler {
	return &ModelHandler{client: client, defaultModel: defaultModel}
}

// List handles GET /api/v1/models
func (h *ModelHandler) List(w http.ResponseWriter, r *http.Request) {
	models := h.client.Models()
	if models == nil {
		models = []string{}
	}
	writeJSON(w, http.StatusOK, &ModelsResponse{Models: models, Default: h.defaultModel})
}
