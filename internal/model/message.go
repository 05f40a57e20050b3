package model

import "time"

// Sender tags for Message.Sender.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message is immutable once written. ID is assigned monotonically and
// defines the order of messages within a chat.
type Message struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID    uint      `gorm:"not null;index" json:"chat_id"`
	Sender    string    `gorm:"type:varchar(16);not null" json:"sender"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}
