package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/service/types"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Code    types.Code        `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// statusOf 错误码到 HTTP 状态码
func statusOf(code types.Code) int {
	switch code {
	case types.CodeValidation:
		return http.StatusBadRequest
	case types.CodeUnauthorized:
		return http.StatusUnauthorized
	case types.CodeForbidden:
		return http.StatusForbidden
	case types.CodeNotFound, types.CodeRunNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Success 成功响应 (200)
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created 创建成功响应 (201)
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent 无内容响应 (204)
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest 请求体无法解析
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{Code: types.CodeValidation, Message: msg}})
}

// base 处理器共用的错误输出
type base struct {
	log *zap.Logger
	// verbose 为 true 时内部错误返回原始信息
	verbose bool
}

// fail 根据错误类型返回相应的错误响应
func (b *base) fail(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var te *types.Error
	if !errors.As(err, &te) {
		te = types.Internal("内部エラーが発生しました", err)
	}

	detail := ErrorDetail{Code: te.Code, Message: te.Message, Fields: te.Fields}
	if te.Code == types.CodeInternal {
		b.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		if b.verbose && te.Err != nil {
			detail.Message = te.Message + ": " + te.Err.Error()
		}
	}

	c.AbortWithStatusJSON(statusOf(te.Code), ErrorResponse{Error: detail})
}
