// Package events defines the chat lifecycle events published to the message bus.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	ChatCreated   = "chat.created"
	ChatDeleted   = "chat.deleted"
	TurnDelivered = "turn.delivered"
	TurnFailed    = "turn.failed"
)

// ChatEvent is the JSON payload written for every chat state change.
type ChatEvent struct {
	Type               string    `json:"type"`
	UserID             uint      `json:"user_id"`
	ChatID             uint      `json:"chat_id"`
	UserMessageID      uint      `json:"user_message_id,omitempty"`
	AssistantMessageID uint      `json:"assistant_message_id,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event ChatEvent) error
}

type discard struct{}

func (discard) Publish(context.Context, ChatEvent) error { return nil }

// Discard drops every event. It is used when no bus is configured.
var Discard Publisher = discard{}
