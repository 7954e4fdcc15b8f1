package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/ai-toolbox/internal/service"
	"github.com/ashwinyue/ai-toolbox/internal/service/auth"
)

// AuthHandler 管理员认证处理器
type AuthHandler struct {
	base
	svc *service.Services
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.Services, b base) *AuthHandler {
	return &AuthHandler{base: b, svc: svc}
}

// Login 管理员登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "リクエストの形式が正しくありません")
		return
	}

	resp, err := h.svc.Auth.Login(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	Success(c, resp)
}
