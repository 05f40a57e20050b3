package repository

import (
	"context"

	"gorm.io/gorm"

	"agent-chat-go/internal/model"
)

// MessageRepository appends and lists chat messages.
type MessageRepository interface {
	Create(ctx context.Context, message *model.Message) error
	ListByChat(ctx context.Context, chatID uint) ([]model.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create appends message to its chat and bumps the chat's updated_at in the
// same transaction, so chat recency never lags behind its messages.
func (r *messageRepository) Create(ctx context.Context, message *model.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		res := tx.Model(&model.Chat{}).
			Where("id = ?", message.ChatID).
			Update("updated_at", message.CreatedAt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListByChat returns the chat's messages in creation order.
func (r *messageRepository) ListByChat(ctx context.Context, chatID uint) ([]model.Message, error) {
	messages := make([]model.Message, 0)
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}
