package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agent-chat-go/internal/service"
)

// ChatHandler serves the chat and message endpoints. All routes run behind
// the auth middleware.
type ChatHandler struct {
	chatService service.ChatService
	turnService service.TurnService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, turnService service.TurnService) *ChatHandler {
	return &ChatHandler{chatService: chatService, turnService: turnService}
}

// CreateChatRequest is the body of POST /chats.
type CreateChatRequest struct {
	Title string `json:"title" binding:"required"`
}

// MessageRequest is the body of POST /chats/new and POST /chats/:id/messages.
type MessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *ChatHandler) CreateChat(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "title is required")
		return
	}
	chat, err := h.chatService.CreateChat(c.Request.Context(), user.ID, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	chats, err := h.chatService.ListChats(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

func (h *ChatHandler) GetChat(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	chat, err := h.chatService.GetChat(c.Request.Context(), user.ID, chatID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

// StartChat creates a chat and runs its first turn.
func (h *ChatHandler) StartChat(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "content is required")
		return
	}
	res, err := h.turnService.StartChat(c.Request.Context(), user.ID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SendMessage runs one turn in an existing chat and returns the assistant message.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "content is required")
		return
	}
	msg, err := h.turnService.SendMessage(c.Request.Context(), user.ID, chatID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	msgs, err := h.chatService.ListMessages(c.Request.Context(), user.ID, chatID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *ChatHandler) DeleteChat(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	if err := h.chatService.DeleteChat(c.Request.Context(), user.ID, chatID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
