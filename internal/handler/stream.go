package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/localchat/internal/middleware"
	"github.com/capitalize-ai/localchat/internal/model"
	"github.com/capitalize-ai/localchat/internal/service"
	"github.com/capitalize-ai/localchat/pkg/logger"
	"github.com/capitalize-ai/localchat/pkg/metrics"
)

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	exchange *service.ExchangeService
	logger   *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(exchange *service.ExchangeService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		exchange: exchange,
		logger:   log,
	}
}

// DoneEvent closes a stream.
type DoneEvent struct {
	Success   bool `json:"success"`
	Assistant bool `json:"assistant"`
}

// StreamWithMessage handles POST /api/v1/conversations/:id/stream
// It submits a message and streams the exchange as server-sent events:
// user_message, token (zero or more), message_complete (when the model
// replied) and done. Errors found before the message is stored are plain
// JSON responses.
func (h *StreamHandler) StreamWithMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	var req model.SubmitMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, CodeInternal, "streaming not supported", nil)
		return
	}

	started := false
	start := func() {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
		w.WriteHeader(http.StatusOK)
		started = true

		metrics.IncrementSSEConnections()
	}
	defer func() {
		if started {
			metrics.DecrementSSEConnections()
		}
	}()

	resp, err := h.exchange.SubmitStream(ctx, service.SubmitInput{
		ConversationID: conversationID,
		Role:           req.Role,
		Content:        req.Content,
		Tokens:         req.Tokens,
	}, service.StreamObserver{
		Stored: func(msg *model.Message) {
			start()
			sendSSEEvent(w, flusher, "user_message", msg)
		},
		Token: func(token string, index int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return sendSSEEvent(w, flusher, "token", &model.TokenEvent{
				Token: token,
				Index: index,
			})
		},
	})

	if err != nil {
		if !started {
			handleServiceError(w, r, h.logger, err)
			return
		}
		h.logger.Error("stream exchange failed",
			zap.String("conversation_id", conversationID),
			zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
			zap.Error(err),
		)
		_, code, message, _ := errorStatus(err)
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    code,
			Message: message,
		})
		sendSSEEvent(w, flusher, "done", &DoneEvent{Success: false})
		return
	}

	if resp.Assistant != nil {
		sendSSEEvent(w, flusher, "message_complete", &model.MessageCompleteEvent{
			Message:  *resp.Assistant,
			Sequence: resp.Assistant.Sequence,
		})
	}

	sendSSEEvent(w, flusher, "done", &DoneEvent{Success: true, Assistant: resp.Assistant != nil})
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
