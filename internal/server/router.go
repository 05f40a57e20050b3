// Package server wires handlers and middleware into the gin engine.
package server

import (
	"github.com/gin-gonic/gin"

	"agent-chat-go/internal/handler"
	"agent-chat-go/internal/middleware"
	"agent-chat-go/internal/service"
)

// RouterConfig carries the services behind the HTTP surface.
type RouterConfig struct {
	AllowedOrigins []string
	AuthService    service.AuthService
	ChatService    service.ChatService
	TurnService    service.TurnService
}

// NewRouter builds the engine. Everything except /health and /auth/callback
// requires a bearer token.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(cfg.AllowedOrigins))

	// 无需认证的路由
	r.GET("/health", handler.Health)
	r.POST("/auth/callback", handler.NewAuthHandler(cfg.AuthService).Callback)

	// 需要认证的路由
	authed := middleware.AuthMiddleware(cfg.AuthService)
	r.GET("/users/me", authed, handler.NewUserHandler().GetProfile)

	chatHandler := handler.NewChatHandler(cfg.ChatService, cfg.TurnService)
	chats := r.Group("/chats")
	chats.Use(authed)
	{
		chats.POST("", chatHandler.CreateChat)
		chats.GET("", chatHandler.ListChats)
		chats.POST("/new", chatHandler.StartChat)
		chats.GET("/:id", chatHandler.GetChat)
		chats.DELETE("/:id", chatHandler.DeleteChat)
		chats.POST("/:id/messages", chatHandler.SendMessage)
		chats.GET("/:id/messages", chatHandler.ListMessages)
	}
	return r
}
