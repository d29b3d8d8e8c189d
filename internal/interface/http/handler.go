package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/drunkod/crayon-chat/internal/domain/chat"
	apperrors "github.com/drunkod/crayon-chat/pkg/errors"
)

// ChatHandler wires the HTTP transport to the chat dispatcher.
type ChatHandler struct {
	svc    chat.Service
	logger *slog.Logger
}

// NewChatHandler constructs the handler.
func NewChatHandler(svc chat.Service, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		svc:    svc,
		logger: logger.With("component", "http.chat"),
	}
}

// Chat dispatches an inbound message and streams the reply as server-sent
// events. Pre-stream failures return a single JSON error body instead.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "request body must be JSON with a messages array", err))
		return
	}
	if len(req.Messages) == 0 {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "messages cannot be empty", nil))
		return
	}

	reply, err := h.svc.Respond(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, h.classify(err))
		return
	}

	writer, ok := newSSEWriter(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "stream_unsupported", "streaming not supported", nil))
		return
	}

	if reply.Event != nil {
		if err := writer.writeEvent(reply.Event); err != nil {
			h.logger.Error("failed to write event", "error", err)
		}
		return
	}

	for delta := range reply.Stream {
		if delta.Err != nil {
			// Chunks already sent cannot be rolled back; dropping the
			// connection is the error signal the protocol allows.
			h.logger.Error("stream aborted", "error", delta.Err)
			return
		}
		writer.writeText(delta.Text)
	}
}

func (h *ChatHandler) classify(err error) *HTTPError {
	var exhausted *chat.ExhaustedError
	if errors.As(err, &exhausted) {
		status := http.StatusServiceUnavailable
		code := "providers_exhausted"
		if exhausted.RateLimited {
			status = http.StatusTooManyRequests
			code = "rate_limited"
		}
		return &HTTPError{
			Status:     status,
			Code:       code,
			Message:    exhausted.Error(),
			Suggestion: exhausted.Suggestion,
			Attempts:   exhausted.Attempts,
			Err:        err,
		}
	}
	if apperrors.IsCode(err, "invalid_input") {
		return NewHTTPError(http.StatusBadRequest, "invalid_request", err.Error(), err)
	}
	return NewHTTPError(http.StatusInternalServerError, "chat_failed", err.Error(), err)
}

// Health reports liveness.
func (h *ChatHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
