package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/chatrelay/internal/models"
	apperrors "github.com/charlesng35/chatrelay/pkg/errors"
	"github.com/charlesng35/chatrelay/pkg/validator"
)

// CreateRoomInput captures new room metadata.
type CreateRoomInput struct {
	Name      string `json:"name" validate:"required,max=128,roomname"`
	IsGroup   bool   `json:"is_group"`
	CreatedBy string `json:"-"`
}

// RoomService manages the room directory. Rooms listed here are a discovery
// aid; the realtime layer accepts any room identifier.
type RoomService struct {
	db *gorm.DB
}

// NewRoomService constructs a RoomService instance.
func NewRoomService(db *gorm.DB) (*RoomService, error) {
	if db == nil {
		return nil, errors.New("room service: db is required")
	}
	return &RoomService{db: db}, nil
}

// List returns every room ordered by name.
func (s *RoomService) List(ctx context.Context) ([]models.ChatRoom, error) {
	ctx = ensureContext(ctx)

	var rooms []models.ChatRoom
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("room service: list rooms: %w", err)
	}
	return rooms, nil
}

// Create registers a new room.
func (s *RoomService) Create(ctx context.Context, input CreateRoomInput) (*models.ChatRoom, error) {
	ctx = ensureContext(ctx)

	input.Name = strings.TrimSpace(input.Name)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}

	room := &models.ChatRoom{
		Name:      input.Name,
		IsGroup:   input.IsGroup,
		CreatedBy: truncate(input.CreatedBy, 128),
	}
	if err := s.db.WithContext(ctx).Create(room).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.ErrRoomExists
		}
		return nil, fmt.Errorf("room service: create room: %w", err)
	}

	return room, nil
}

// Get loads a room by id or by name.
func (s *RoomService) Get(ctx context.Context, idOrName string) (*models.ChatRoom, error) {
	ctx = ensureContext(ctx)

	idOrName = strings.TrimSpace(idOrName)
	if idOrName == "" {
		return nil, apperrors.ErrRoomNotFound
	}

	var room models.ChatRoom
	err := s.db.WithContext(ctx).
		Where("id = ? OR name = ?", idOrName, idOrName).
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("room service: load room: %w", err)
	}
	return &room, nil
}
