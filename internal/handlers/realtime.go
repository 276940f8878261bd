package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/chatrelay/internal/auth"
	"github.com/charlesng35/chatrelay/internal/realtime"
	apperrors "github.com/charlesng35/chatrelay/pkg/errors"
	"github.com/charlesng35/chatrelay/pkg/response"
)

// RealtimeHandler upgrades HTTP connections into chat WebSocket streams.
type RealtimeHandler struct {
	server   *realtime.Server
	identity *iauth.IdentityResolver
}

// NewRealtimeHandler constructs a realtime handler.
func NewRealtimeHandler(server *realtime.Server, identity *iauth.IdentityResolver) *RealtimeHandler {
	return &RealtimeHandler{server: server, identity: identity}
}

// Stream resolves the caller identity and hands the request to the socket
// server. Clients without an identity connect anonymously; a presented but
// invalid token is rejected before the upgrade.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h == nil || h.server == nil || h.identity == nil {
		response.Error(c, apperrors.ErrServiceUnavailable)
		return
	}

	userID, err := h.identity.Resolve(c.Request)
	if err != nil {
		if errors.Is(err, iauth.ErrInvalidCredentials) {
			response.Error(c, apperrors.ErrInvalidToken)
			return
		}
		response.Error(c, err)
		return
	}

	h.server.Serve(userID, c.Writer, c.Request)
}
