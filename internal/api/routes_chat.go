package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/chatrelay/internal/handlers"
)

func registerChatRoutes(api *gin.RouterGroup, rooms *handlers.RoomHandler, messages *handlers.MessageHandler, limit gin.HandlerFunc) {
	chat := api.Group("/chat")

	if rooms != nil {
		chat.GET("/rooms", rooms.List)
		chat.POST("/rooms", withLimit(limit, rooms.Create)...)
		chat.GET("/rooms/:id", rooms.Get)
	}

	if messages != nil {
		chat.GET("/messages/:roomId", messages.ListByRoom)
	}
}
