package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/chatrelay/internal/handlers"
)

func registerPresenceRoutes(api *gin.RouterGroup, handler *handlers.PresenceHandler) {
	if handler == nil {
		return
	}
	api.GET("/presence/:userId", handler.Get)
}
