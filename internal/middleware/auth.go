package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/ai-toolbox/internal/service/types"
)

// TokenValidator 校验管理员令牌
type TokenValidator interface {
	Enabled() bool
	ValidateToken(token string) error
}

// RequireAdmin 要求有效的管理员令牌，认证关闭时直接放行
func RequireAdmin(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.Enabled() {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Missing Authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(c, "Invalid Authorization header format")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if err := v.ValidateToken(token); err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    types.CodeUnauthorized,
			"message": msg,
		},
	})
}
