package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// AnonIDHeader 匿名客户端标识
	AnonIDHeader = "X-Anon-ID"
	// FallbackHeader 生成回退到 mock 时设置
	FallbackHeader = "X-Fallback-Used"

	anonIDKey         = "anon_id"
	anonIDSuppliedKey = "anon_id_supplied"
)

var anonIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// AnonIDMiddleware 读取匿名客户端标识，缺失或格式错误时生成新的并回写
func AnonIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		anonID := c.GetHeader(AnonIDHeader)
		supplied := anonIDPattern.MatchString(anonID)
		if !supplied {
			anonID = uuid.New().String()
		}
		c.Set(anonIDKey, anonID)
		c.Set(anonIDSuppliedKey, supplied)
		c.Header(AnonIDHeader, anonID)
		c.Next()
	}
}

// GetAnonID 从上下文获取匿名客户端标识
func GetAnonID(c *gin.Context) string {
	return c.GetString(anonIDKey)
}

// AnonIDSupplied 标识是否由客户端提供，服务端生成的返回 false
func AnonIDSupplied(c *gin.Context) bool {
	return c.GetBool(anonIDSuppliedKey)
}
