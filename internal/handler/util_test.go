package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/capitalize-ai/localchat/internal/service"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &service.ValidationError{Fields: map[string]string{"content": "content cannot be empty"}}, http.StatusBadRequest, CodeValidation},
		{"unauthorized", &service.UnauthorizedError{Reason: "invalid email or password"}, http.StatusUnauthorized, CodeUnauthorized},
		{"not found", &service.NotFoundError{Resource: "conversation"}, http.StatusNotFound, CodeNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", &service.NotFoundError{Resource: "user"}), http.StatusNotFound, CodeNotFound},
		{"conflict", &service.ConflictError{Resource: "user", Field: "email"}, http.StatusConflict, CodeConflict},
		{"store failure", errors.New("connection reset by peer"), http.StatusInternalServerError, CodeStoreFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, message, _ := errorStatus(tt.err)
			if status != tt.status || code != tt.code {
				t.Errorf("errorStatus(%v) = %d %s, want %d %s", tt.err, status, code, tt.status, tt.code)
			}
			if status == http.StatusInternalServerError && message == tt.err.Error() {
				t.Error("store failure detail leaked into the response")
			}
		})
	}
}
