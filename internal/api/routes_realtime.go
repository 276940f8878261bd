package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/chatrelay/internal/handlers"
)

func registerRealtimeRoutes(r *gin.Engine, handler *handlers.RealtimeHandler, limit gin.HandlerFunc) {
	if handler == nil {
		return
	}
	r.GET("/ws", withLimit(limit, handler.Stream)...)
}
