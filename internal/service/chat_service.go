package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"agent-chat-go/internal/model"
	"agent-chat-go/internal/repository"
	"agent-chat-go/pkg/agent"
	"agent-chat-go/pkg/events"
	"agent-chat-go/pkg/log"
)

// ChatService exposes the conversation store to authenticated users.
// Every method that takes a chatID checks that the chat belongs to userID.
type ChatService interface {
	CreateChat(ctx context.Context, userID uint, title string) (*model.Chat, error)
	ListChats(ctx context.Context, userID uint) ([]model.Chat, error)
	GetChat(ctx context.Context, userID, chatID uint) (*model.Chat, error)
	ListMessages(ctx context.Context, userID, chatID uint) ([]model.Message, error)
	DeleteChat(ctx context.Context, userID, chatID uint) error
}

type chatService struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	agent       agent.Agent
	publisher   events.Publisher
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(chatRepo repository.ChatRepository, messageRepo repository.MessageRepository, agent agent.Agent, publisher events.Publisher) ChatService {
	return &chatService{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		agent:       agent,
		publisher:   publisher,
	}
}

func (s *chatService) CreateChat(ctx context.Context, userID uint, title string) (*model.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("title must not be empty")
	}
	chat := &model.Chat{UserID: userID, Title: title}
	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, internalError("failed to create chat", err)
	}
	publish(ctx, s.publisher, events.ChatEvent{Type: events.ChatCreated, UserID: userID, ChatID: chat.ID})
	return chat, nil
}

func (s *chatService) ListChats(ctx context.Context, userID uint) ([]model.Chat, error) {
	chats, err := s.chatRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, internalError("failed to list chats", err)
	}
	return chats, nil
}

func (s *chatService) GetChat(ctx context.Context, userID, chatID uint) (*model.Chat, error) {
	return ownedChat(ctx, s.chatRepo, userID, chatID)
}

func (s *chatService) ListMessages(ctx context.Context, userID, chatID uint) ([]model.Message, error) {
	if _, err := ownedChat(ctx, s.chatRepo, userID, chatID); err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.ListByChat(ctx, chatID)
	if err != nil {
		return nil, internalError("failed to list messages", err)
	}
	return messages, nil
}

// DeleteChat removes the chat with its messages, then drops the agent's
// memory of the session. A memory failure is logged, not returned: the
// chat is already gone.
func (s *chatService) DeleteChat(ctx context.Context, userID, chatID uint) error {
	if _, err := ownedChat(ctx, s.chatRepo, userID, chatID); err != nil {
		return err
	}
	if err := s.chatRepo.Delete(ctx, chatID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return chatNotFound(KindNotFound)
		}
		return internalError("failed to delete chat", err)
	}
	if err := s.agent.Forget(ctx, sessionID(chatID)); err != nil {
		log.Warnw("failed to clear agent memory", "chatID", chatID, "error", err)
	}
	publish(ctx, s.publisher, events.ChatEvent{Type: events.ChatDeleted, UserID: userID, ChatID: chatID})
	return nil
}

// ownedChat loads a chat and verifies its owner. Missing and foreign chats
// produce the same "Chat not found" message.
func ownedChat(ctx context.Context, chatRepo repository.ChatRepository, userID, chatID uint) (*model.Chat, error) {
	chat, err := chatRepo.FindByID(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, chatNotFound(KindNotFound)
	}
	if err != nil {
		return nil, internalError("failed to load chat", err)
	}
	if chat.UserID != userID {
		return nil, chatNotFound(KindAuthorization)
	}
	return chat, nil
}

// sessionID is the key the agent uses for a chat's memory.
func sessionID(chatID uint) string {
	return strconv.FormatUint(uint64(chatID), 10)
}

// publishTimeout bounds a single Publish call on the request path.
const publishTimeout = 2 * time.Second

func publish(ctx context.Context, publisher events.Publisher, event events.ChatEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := publisher.Publish(ctx, event); err != nil {
		log.Warnw("failed to publish chat event", "type", event.Type, "chatID", event.ChatID, "error", err)
	}
}
