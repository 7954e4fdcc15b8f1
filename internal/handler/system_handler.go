package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/ai-toolbox/internal/service"
	"github.com/ashwinyue/ai-toolbox/internal/service/types"
)

// SystemHandler 系统处理器
type SystemHandler struct {
	base
	svc *service.Services
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(svc *service.Services, b base) *SystemHandler {
	return &SystemHandler{base: b, svc: svc}
}

// Health 检查存储连接并返回工具数量
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.svc.Repo.Ping(ctx); err != nil {
		h.fail(c, types.Internal("データベース接続エラー", err))
		return
	}
	n, err := h.svc.Repo.Tool.Count(ctx)
	if err != nil {
		h.fail(c, types.Internal("データベース接続エラー", err))
		return
	}

	Success(c, gin.H{
		"success":    true,
		"message":    "データベース接続が正常です",
		"toolsCount": n,
		"version":    h.svc.Config.App.Version,
	})
}
