// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"agent-chat-go/internal/model"
	"agent-chat-go/internal/service"
	"agent-chat-go/pkg/log"
)

// UserKey is the gin context key holding the authenticated *model.User.
const UserKey = "user"

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, tokenString string) (*model.User, error)
}

// AuthMiddleware 创建一个 Gin 中间件，用于 Bearer token 认证。
// It rejects the request with 401 before any handler runs unless the token
// is valid and its user still exists.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Not authenticated")
			return
		}

		scheme, tokenString, found := strings.Cut(authHeader, " ")
		tokenString = strings.TrimSpace(tokenString)
		if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			unauthorized(c, "Invalid authorization header")
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			se := service.AsError(err)
			if se.Kind != service.KindAuthentication {
				log.Errorw("authentication lookup failed",
					"path", c.FullPath(),
					"kind", se.Kind.String(),
					"error", se.Err,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "internal server error"})
				return
			}
			unauthorized(c, se.Message)
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": msg})
}
