package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/localchat/internal/middleware"
	"github.com/capitalize-ai/localchat/internal/model"
	"github.com/capitalize-ai/localchat/internal/service"
	"github.com/capitalize-ai/localchat/pkg/logger"
)

// Error codes carried in the "code" field of error bodies.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeStoreFailure = "STORE_FAILURE"
	CodeInternal     = "INTERNAL_ERROR"
)

// maxBodyBytes bounds request bodies; message content is capped well below it.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, fields map[string]string) {
	writeJSON(w, status, &model.ErrorResponse{
		Error:     message,
		Code:      code,
		Fields:    fields,
		RequestID: middleware.GetCorrelationID(r.Context()),
	})
}

// decodeJSON reads a bounded JSON body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body", nil)
		return false
	}
	return true
}

// errorStatus maps a service error onto its HTTP status, code and message.
func errorStatus(err error) (int, string, string, map[string]string) {
	var (
		verr     *service.ValidationError
		notFound *service.NotFoundError
		conflict *service.ConflictError
		unauth   *service.UnauthorizedError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, CodeValidation, "validation failed", verr.Fields
	case errors.As(err, &unauth):
		return http.StatusUnauthorized, CodeUnauthorized, unauth.Error(), nil
	case errors.As(err, &notFound):
		return http.StatusNotFound, CodeNotFound, notFound.Error(), nil
	case errors.As(err, &conflict):
		return http.StatusConflict, CodeConflict, conflict.Error(), nil
	default:
		return http.StatusInternalServerError, CodeStoreFailure, "internal storage failure", nil
	}
}

// handleServiceError writes the response for err. Store failures are
// logged; their detail never reaches the client.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	status, code, message, fields := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
	}
	writeError(w, r, status, code, message, fields)
}
