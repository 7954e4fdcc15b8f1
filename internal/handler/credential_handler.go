package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/ai-toolbox/internal/service"
	"github.com/ashwinyue/ai-toolbox/internal/service/credential"
)

// CredentialHandler 调用方密钥校验处理器
type CredentialHandler struct {
	base
	svc *service.Services
}

// NewCredentialHandler 创建密钥校验处理器
func NewCredentialHandler(svc *service.Services, b base) *CredentialHandler {
	return &CredentialHandler{base: b, svc: svc}
}

type validateKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// ValidateAPIKey 校验密钥，结果总是以 200 返回
func (h *CredentialHandler) ValidateAPIKey(c *gin.Context) {
	var req validateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Success(c, credential.Result{IsValid: false, Error: "Validation failed"})
		return
	}

	Success(c, h.svc.Credential.Validate(c.Request.Context(), req.APIKey))
}
