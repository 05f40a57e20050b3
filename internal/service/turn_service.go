package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"agent-chat-go/internal/config"
	"agent-chat-go/internal/model"
	"agent-chat-go/internal/repository"
	"agent-chat-go/pkg/agent"
	"agent-chat-go/pkg/events"
	"agent-chat-go/pkg/log"
)

const maxTitleRunes = 60

// NewChatResult is the outcome of the first turn of a new chat.
type NewChatResult struct {
	Chat    *model.Chat    `json:"chat"`
	Message *model.Message `json:"message"`
	Title   string         `json:"title"`
}

// TurnService turns an inbound user message into a persisted conversation turn.
//
// The user message is written before the agent is called and is never rolled
// back. When the agent fails, no assistant message is written and the
// returned error has kind KindUpstreamUnavailable with Upstream "agent".
// Failed agent calls are not retried.
type TurnService interface {
	// SendMessage runs one turn in an existing chat owned by userID and returns the assistant message.
	SendMessage(ctx context.Context, userID, chatID uint, content string) (*model.Message, error)
	// StartChat creates a chat and runs its first turn.
	StartChat(ctx context.Context, userID uint, content string) (*NewChatResult, error)
}

type turnService struct {
	chatRepo     repository.ChatRepository
	messageRepo  repository.MessageRepository
	agent        agent.Agent
	publisher    events.Publisher
	chatCfg      config.ChatConfig
	agentTimeout time.Duration
}

// NewTurnService 创建一个新的 TurnService 实例。agentTimeout <= 0 disables the bound.
func NewTurnService(
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	agent agent.Agent,
	publisher events.Publisher,
	chatCfg config.ChatConfig,
	agentTimeout time.Duration,
) TurnService {
	return &turnService{
		chatRepo:     chatRepo,
		messageRepo:  messageRepo,
		agent:        agent,
		publisher:    publisher,
		chatCfg:      chatCfg,
		agentTimeout: agentTimeout,
	}
}

func (s *turnService) SendMessage(ctx context.Context, userID, chatID uint, content string) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, validationError("content must not be empty")
	}
	chat, err := ownedChat(ctx, s.chatRepo, userID, chatID)
	if err != nil {
		return nil, err
	}
	return s.runTurn(ctx, chat, content)
}

func (s *turnService) StartChat(ctx context.Context, userID uint, content string) (*NewChatResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, validationError("content must not be empty")
	}

	title := s.titleFor(content)
	chat := &model.Chat{UserID: userID, Title: title}
	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, internalError("Failed to create chat", err)
	}
	publish(ctx, s.publisher, events.ChatEvent{Type: events.ChatCreated, UserID: userID, ChatID: chat.ID})

	reply, err := s.runTurn(ctx, chat, content)
	if err != nil {
		return nil, err
	}
	return &NewChatResult{Chat: chat, Message: reply, Title: title}, nil
}

func (s *turnService) runTurn(ctx context.Context, chat *model.Chat, content string) (*model.Message, error) {
	userMsg := &model.Message{ChatID: chat.ID, Sender: model.SenderUser, Content: content}
	if err := s.messageRepo.Create(ctx, userMsg); err != nil {
		return nil, internalError("failed to save message", err)
	}

	reply, err := s.invokeAgent(ctx, chat.ID, content)
	if err != nil {
		log.Errorw("agent invocation failed",
			"chatID", chat.ID,
			"userMessageID", userMsg.ID,
			"timeout", errors.Is(err, context.DeadlineExceeded),
			"error", err,
		)
		publish(ctx, s.publisher, events.ChatEvent{
			Type:          events.TurnFailed,
			UserID:        chat.UserID,
			ChatID:        chat.ID,
			UserMessageID: userMsg.ID,
		})
		return nil, upstreamError(UpstreamAgent, "Agent failed to respond", err)
	}

	// the agent already answered; a client that went away must not lose the reply
	assistantMsg := &model.Message{ChatID: chat.ID, Sender: model.SenderAssistant, Content: reply}
	if err := s.messageRepo.Create(context.WithoutCancel(ctx), assistantMsg); err != nil {
		return nil, internalError("failed to save assistant message", err)
	}

	publish(ctx, s.publisher, events.ChatEvent{
		Type:               events.TurnDelivered,
		UserID:             chat.UserID,
		ChatID:             chat.ID,
		UserMessageID:      userMsg.ID,
		AssistantMessageID: assistantMsg.ID,
	})
	return assistantMsg, nil
}

func (s *turnService) invokeAgent(ctx context.Context, chatID uint, content string) (string, error) {
	if s.agentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.agentTimeout)
		defer cancel()
	}
	return s.agent.Invoke(ctx, content, sessionID(chatID))
}

// titleFor returns the configured fixed title, or the first line of content
// when title_from_message is on.
func (s *turnService) titleFor(content string) string {
	if !s.chatCfg.TitleFromMessage {
		return s.chatCfg.DefaultTitle
	}
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(content), "\n", 2)[0])
	if line == "" {
		return s.chatCfg.DefaultTitle
	}
	if utf8.RuneCountInString(line) > maxTitleRunes {
		line = string([]rune(line)[:maxTitleRunes]) + "…"
	}
	return line
}
