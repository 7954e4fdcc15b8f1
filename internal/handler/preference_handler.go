package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/ai-toolbox/internal/middleware"
	"github.com/ashwinyue/ai-toolbox/internal/service"
	"github.com/ashwinyue/ai-toolbox/internal/service/preference"
)

// PreferenceHandler 收藏与历史处理器，按 X-Anon-ID 区分客户端
type PreferenceHandler struct {
	base
	svc *service.Services
}

// NewPreferenceHandler 创建偏好处理器
func NewPreferenceHandler(svc *service.Services, b base) *PreferenceHandler {
	return &PreferenceHandler{base: b, svc: svc}
}

// ListFavorites 列出收藏
func (h *PreferenceHandler) ListFavorites(c *gin.Context) {
	favs, err := h.svc.Preference.ListFavorites(c.Request.Context(), middleware.GetAnonID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"favorites": favs})
}

type addFavoriteRequest struct {
	ToolSlug string `json:"toolSlug"`
}

// AddFavorite 添加收藏
func (h *PreferenceHandler) AddFavorite(c *gin.Context) {
	var req addFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "リクエストの形式が正しくありません")
		return
	}

	ctx := c.Request.Context()
	// 只允许收藏公开工具
	if req.ToolSlug != "" {
		if _, err := h.svc.Tool.Get(ctx, req.ToolSlug); err != nil {
			h.fail(c, err)
			return
		}
	}

	favs, err := h.svc.Preference.AddFavorite(ctx, middleware.GetAnonID(c), req.ToolSlug)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"favorites": favs})
}

// RemoveFavorite 移除收藏
func (h *PreferenceHandler) RemoveFavorite(c *gin.Context) {
	favs, err := h.svc.Preference.RemoveFavorite(c.Request.Context(), middleware.GetAnonID(c), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"favorites": favs})
}

// ListHistory 列出历史
func (h *PreferenceHandler) ListHistory(c *gin.Context) {
	items, err := h.svc.Preference.ListHistory(c.Request.Context(), middleware.GetAnonID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"history": items})
}

// AddHistory 添加历史
func (h *PreferenceHandler) AddHistory(c *gin.Context) {
	var req preference.HistoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "リクエストの形式が正しくありません")
		return
	}

	item, err := h.svc.Preference.AddHistory(c.Request.Context(), middleware.GetAnonID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, gin.H{"item": item})
}

// ClearHistory 清空历史
func (h *PreferenceHandler) ClearHistory(c *gin.Context) {
	if err := h.svc.Preference.ClearHistory(c.Request.Context(), middleware.GetAnonID(c)); err != nil {
		h.fail(c, err)
		return
	}
	NoContent(c)
}
