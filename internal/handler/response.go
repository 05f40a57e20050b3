// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"agent-chat-go/internal/middleware"
	"agent-chat-go/internal/model"
	"agent-chat-go/internal/service"
	"agent-chat-go/pkg/log"
)

// statusFor maps a service error to its HTTP status.
func statusFor(se *service.Error) int {
	switch se.Kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindAuthentication:
		return http.StatusUnauthorized
	case service.KindAuthorization, service.KindNotFound:
		return http.StatusNotFound
	case service.KindUpstreamUnavailable:
		if se.Upstream == service.UpstreamOAuth {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"code","message"}. Only the client-safe
// message leaves the process; the cause goes to the log.
func respondError(c *gin.Context, err error) {
	se := service.AsError(err)
	status := statusFor(se)
	if status >= http.StatusInternalServerError {
		log.Errorw("request failed",
			"path", c.FullPath(),
			"kind", se.Kind.String(),
			"upstream", se.Upstream,
			"error", se.Err,
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"code": status, "message": se.Message})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": msg})
}

// currentUser returns the user stored by the auth middleware.
func currentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(middleware.UserKey)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "无法获取用户信息"})
		return nil, false
	}
	user, ok := v.(*model.User)
	if !ok || user == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "用户数据类型错误"})
		return nil, false
	}
	return user, true
}

// chatIDParam parses :id. Anything that is not a positive integer is
// reported as a missing chat.
func chatIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "Chat not found"})
		return 0, false
	}
	return uint(id), true
}
