package handler

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/ai-toolbox/internal/middleware"
	"github.com/ashwinyue/ai-toolbox/internal/service"
	"github.com/ashwinyue/ai-toolbox/internal/service/run"
)

// RunHandler 工具运行处理器
type RunHandler struct {
	base
	svc *service.Services
}

// NewRunHandler 创建运行处理器
func NewRunHandler(svc *service.Services, b base) *RunHandler {
	return &RunHandler{base: b, svc: svc}
}

// CreateRun 运行工具
func (h *RunHandler) CreateRun(c *gin.Context) {
	var req run.Request
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, "リクエストの形式が正しくありません")
		return
	}
	// 只为客户端自带的标识记录历史
	if middleware.AnonIDSupplied(c) {
		req.AnonID = middleware.GetAnonID(c)
	}

	resp, err := h.svc.Run.Run(c.Request.Context(), c.Param("slug"), &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	if resp.Fallback {
		c.Header(middleware.FallbackHeader, "true")
	}
	Success(c, resp)
}

// ListRuns 列出工具最近的运行记录
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.svc.Run.ListByTool(c.Request.Context(), c.Param("slug"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}

	Success(c, gin.H{"runs": runs})
}

// GetRun 获取运行记录
func (h *RunHandler) GetRun(c *gin.Context) {
	rec, err := h.svc.Run.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	Success(c, gin.H{"run": rec})
}
