package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/service/types"
)

// RecoveryMiddleware 恢复中间件，panic 时返回 INTERNAL_ERROR
func RecoveryMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic recovered",
					zap.Any("panic", err),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{
						"code":    types.CodeInternal,
						"message": "内部エラーが発生しました",
					},
				})
			}
		}()
		c.Next()
	}
}
