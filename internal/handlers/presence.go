package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/charlesng35/chatrelay/pkg/errors"
	"github.com/charlesng35/chatrelay/pkg/logger"
	"github.com/charlesng35/chatrelay/pkg/response"
)

// PresenceRegistry answers authoritative presence queries.
type PresenceRegistry interface {
	Lookup(userID string) (string, bool)
}

// PresenceMirror answers queries against the shared presence cache.
type PresenceMirror interface {
	Lookup(ctx context.Context, userID string) (string, bool, error)
}

// PresenceHandler reports whether a user currently holds a connection.
type PresenceHandler struct {
	registry PresenceRegistry
	mirror   PresenceMirror
}

// NewPresenceHandler constructs a PresenceHandler. mirror may be nil.
func NewPresenceHandler(registry PresenceRegistry, mirror PresenceMirror) *PresenceHandler {
	return &PresenceHandler{registry: registry, mirror: mirror}
}

type presencePayload struct {
	UserID       string `json:"user_id"`
	Online       bool   `json:"online"`
	ConnectionID string `json:"connection_id,omitempty"`
	Mirrored     *bool  `json:"mirrored,omitempty"`
}

// Get handles GET /api/presence/:userId.
func (h *PresenceHandler) Get(c *gin.Context) {
	if h == nil || h.registry == nil {
		response.Error(c, apperrors.ErrServiceUnavailable)
		return
	}

	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		response.Error(c, apperrors.NewBadRequest("user id is required"))
		return
	}

	connID, online := h.registry.Lookup(userID)
	payload := presencePayload{UserID: userID, Online: online, ConnectionID: connID}

	if h.mirror != nil {
		mirroredID, ok, err := h.mirror.Lookup(c.Request.Context(), userID)
		if err != nil {
			logger.WithModule("handlers").Warn("presence mirror lookup failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		} else {
			mirrored := ok && mirroredID == connID
			payload.Mirrored = &mirrored
		}
	}

	response.Success(c, http.StatusOK, payload)
}
