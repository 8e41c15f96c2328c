package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/capitalize-ai/localchat/internal/model"
)

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: GetCorrelationID(r.Context()),
	})
}
