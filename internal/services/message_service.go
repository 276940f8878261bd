package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/chatrelay/internal/models"
	"github.com/charlesng35/chatrelay/internal/realtime"
	apperrors "github.com/charlesng35/chatrelay/pkg/errors"
)

// ListMessagesOptions filters room history queries.
type ListMessagesOptions struct {
	Limit  int
	Before time.Time
}

// MessageService persists and queries archived chat messages.
type MessageService struct {
	db *gorm.DB
}

// NewMessageService constructs a MessageService instance.
func NewMessageService(db *gorm.DB) (*MessageService, error) {
	if db == nil {
		return nil, errors.New("message service: db is required")
	}
	return &MessageService{db: db}, nil
}

// Archive stores a relayed message. senderUserID is empty for anonymous senders.
func (s *MessageService) Archive(ctx context.Context, senderUserID string, msg realtime.ChatMessage) (*models.ChatMessage, error) {
	ctx = ensureContext(ctx)

	room := strings.TrimSpace(msg.Room)
	if room == "" {
		return nil, apperrors.NewBadRequest("message room is required")
	}

	record := &models.ChatMessage{
		Room:       truncate(room, 128),
		Author:     truncate(msg.Author, 128),
		SenderID:   truncate(senderUserID, 128),
		Text:       msg.Message,
		ClientTime: truncate(msg.Time, 64),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("message service: archive: %w", err)
	}
	return record, nil
}

// ListByRoom returns the newest messages of a room in chronological order.
func (s *MessageService) ListByRoom(ctx context.Context, room string, opts ListMessagesOptions) ([]models.ChatMessage, error) {
	ctx = ensureContext(ctx)

	room = strings.TrimSpace(room)
	if room == "" {
		return nil, apperrors.NewBadRequest("room is required")
	}

	query := s.db.WithContext(ctx).
		Where("room = ?", room).
		Order("created_at DESC").
		Limit(clampLimit(opts.Limit))
	if !opts.Before.IsZero() {
		query = query.Where("created_at < ?", opts.Before.UTC())
	}

	var messages []models.ChatMessage
	if err := query.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("message service: list messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// PruneOlderThan deletes messages archived before cutoff and returns the count removed.
func (s *MessageService) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff.UTC()).
		Delete(&models.ChatMessage{})
	if result.Error != nil {
		return 0, fmt.Errorf("message service: prune: %w", result.Error)
	}
	return result.RowsAffected, nil
}
