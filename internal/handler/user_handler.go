package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理当前登录用户的资料请求。
type UserHandler struct{}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// GetProfile 返回当前已认证用户的资料。
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}
