package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/ai-toolbox/internal/middleware"
	"github.com/ashwinyue/ai-toolbox/internal/service"
	"github.com/ashwinyue/ai-toolbox/internal/service/tool"
)

// ToolHandler 工具目录处理器
type ToolHandler struct {
	base
	svc *service.Services
}

// NewToolHandler 创建工具处理器
func NewToolHandler(svc *service.Services, b base) *ToolHandler {
	return &ToolHandler{base: b, svc: svc}
}

// ListTools 列出公开工具
// favorites=me 使用当前匿名客户端的收藏，其余非空值按逗号分隔的 slug 处理
func (h *ToolHandler) ListTools(c *gin.Context) {
	req := &tool.ListRequest{
		Order:  c.DefaultQuery("order", "popular"),
		Query:  c.Query("q"),
		AnonID: middleware.GetAnonID(c),
	}
	if fav, ok := c.GetQuery("favorites"); ok {
		switch fav {
		case "me", "true", "1":
			req.OnlyFavorites = true
		default:
			req.Slugs = splitSlugs(fav)
		}
	}

	tools, err := h.svc.Tool.List(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	Success(c, gin.H{"tools": tools})
}

// GetTool 获取工具详情
func (h *ToolHandler) GetTool(c *gin.Context) {
	t, err := h.svc.Tool.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}

	Success(c, gin.H{"tool": t})
}

func splitSlugs(raw string) []string {
	slugs := []string{}
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			slugs = append(slugs, s)
		}
	}
	return slugs
}
