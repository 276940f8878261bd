package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/chatrelay/internal/models"
	"github.com/charlesng35/chatrelay/internal/services"
	apperrors "github.com/charlesng35/chatrelay/pkg/errors"
	"github.com/charlesng35/chatrelay/pkg/response"
)

const defaultHistoryLimit = 50

// MessageHandler serves archived room history.
type MessageHandler struct {
	svc *services.MessageService
}

// NewMessageHandler constructs a MessageHandler. A nil service yields a
// handler that reports the archive as unavailable.
func NewMessageHandler(svc *services.MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// ListByRoom handles GET /api/chat/messages/:roomId.
//
// Query parameters: limit (default 50) and before (RFC 3339 timestamp) for
// paging backwards through history.
func (h *MessageHandler) ListByRoom(c *gin.Context) {
	if h == nil || h.svc == nil {
		response.Error(c, apperrors.ErrServiceUnavailable)
		return
	}

	room := strings.TrimSpace(c.Param("roomId"))
	if room == "" {
		response.Error(c, apperrors.NewBadRequest("room id is required"))
		return
	}

	opts := services.ListMessagesOptions{Limit: parseIntQuery(c, "limit", defaultHistoryLimit)}
	if raw := strings.TrimSpace(c.Query("before")); raw != "" {
		before, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, apperrors.NewBadRequest("before must be an RFC 3339 timestamp"))
			return
		}
		opts.Before = before
	}

	messages, err := h.svc.ListByRoom(c.Request.Context(), room, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}

	response.SuccessWithMeta(c, http.StatusOK, messages, &response.Meta{Total: len(messages), Limit: opts.Limit})
}
