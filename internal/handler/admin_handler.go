package handler

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/ai-toolbox/internal/service"
	"github.com/ashwinyue/ai-toolbox/internal/service/tool"
	"github.com/ashwinyue/ai-toolbox/internal/service/types"
)

// AdminHandler 工具管理处理器
type AdminHandler struct {
	base
	svc *service.Services
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(svc *service.Services, b base) *AdminHandler {
	return &AdminHandler{base: b, svc: svc}
}

// CreateTool 创建工具
func (h *AdminHandler) CreateTool(c *gin.Context) {
	var req tool.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "リクエストの形式が正しくありません")
		return
	}

	t, err := h.svc.Tool.Create(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	Created(c, gin.H{
		"success": true,
		"tool":    t,
		"message": "ツールが正常に追加されました",
	})
}

// DeleteTool 删除工具
func (h *AdminHandler) DeleteTool(c *gin.Context) {
	deleted, err := h.svc.Tool.Delete(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}

	Success(c, gin.H{
		"success":     true,
		"message":     "ツールが正常に削除されました",
		"deletedTool": deleted,
	})
}

// RejectProtected 受保护工具的删除在认证之前直接拒绝
func (h *AdminHandler) RejectProtected(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if h.svc.Tool.IsProtected(slug) {
		h.fail(c, types.Forbidden(fmt.Sprintf("ツール '%s' は削除できません", slug)))
		return
	}
	c.Next()
}
