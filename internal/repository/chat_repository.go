package repository

import (
	"context"

	"gorm.io/gorm"

	"agent-chat-go/internal/model"
)

// ChatRepository persists chats. It does not check ownership: callers must
// compare Chat.UserID with the authenticated user before acting on a chat.
type ChatRepository interface {
	Create(ctx context.Context, chat *model.Chat) error
	FindByID(ctx context.Context, chatID uint) (*model.Chat, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Chat, error)
	// Delete removes the chat and all of its messages in one transaction.
	Delete(ctx context.Context, chatID uint) error
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, chat *model.Chat) error {
	return r.db.WithContext(ctx).Create(chat).Error
}

func (r *chatRepository) FindByID(ctx context.Context, chatID uint) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.WithContext(ctx).First(&chat, chatID).Error; err != nil {
		return nil, notFound(err)
	}
	return &chat, nil
}

// ListByUser returns the user's chats, most recently active first.
func (r *chatRepository) ListByUser(ctx context.Context, userID uint) ([]model.Chat, error) {
	chats := make([]model.Chat, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&chats).Error
	return chats, err
}

func (r *chatRepository) Delete(ctx context.Context, chatID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", chatID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Chat{}, chatID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
