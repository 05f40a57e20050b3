package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agent-chat-go/internal/service"
	"agent-chat-go/pkg/log"
)

// AuthHandler 负责处理 OAuth 回调并签发会话 token。
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// OAuthCallbackRequest is the body of POST /auth/callback.
type OAuthCallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// TokenResponse is returned on successful authentication.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Callback exchanges the OAuth code for a session token.
func (h *AuthHandler) Callback(c *gin.Context) {
	var req OAuthCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Callback: invalid request payload, error: %v", err)
		badRequest(c, "Missing code or state in the request")
		return
	}

	accessToken, err := h.authService.Login(c.Request.Context(), req.Code, req.State)
	if err != nil {
		log.Warnf("Callback: authentication failed: %v", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{AccessToken: accessToken, TokenType: "bearer"})
}
