package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/chatrelay/internal/models"
	"github.com/charlesng35/chatrelay/internal/services"
	"github.com/charlesng35/chatrelay/pkg/response"
)

// RoomHandler exposes the room directory.
type RoomHandler struct {
	svc *services.RoomService
}

// NewRoomHandler constructs a RoomHandler.
func NewRoomHandler(svc *services.RoomService) *RoomHandler {
	return &RoomHandler{svc: svc}
}

type createRoomPayload struct {
	Name      string `json:"name" validate:"required,max=128,roomname"`
	IsGroup   bool   `json:"is_group"`
	CreatedBy string `json:"created_by" validate:"max=128"`
}

// List handles GET /api/chat/rooms.
func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if rooms == nil {
		rooms = []models.ChatRoom{}
	}
	response.SuccessWithMeta(c, http.StatusOK, rooms, &response.Meta{Total: len(rooms)})
}

// Create handles POST /api/chat/rooms.
func (h *RoomHandler) Create(c *gin.Context) {
	var payload createRoomPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	room, err := h.svc.Create(c.Request.Context(), services.CreateRoomInput{
		Name:      payload.Name,
		IsGroup:   payload.IsGroup,
		CreatedBy: payload.CreatedBy,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, room)
}

// Get handles GET /api/chat/rooms/:id. The parameter matches either the room
// id or its name.
func (h *RoomHandler) Get(c *gin.Context) {
	room, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, room)
}
