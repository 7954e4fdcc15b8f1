// Package credential 校验调用方提供的 API 密钥
package credential

import (
	"context"
	"errors"
	"regexp"

	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/service/generator"
)

const (
	MinLength = 30
	MaxLength = 50
)

var (
	// ErrInvalidFormat 密钥格式不合法
	ErrInvalidFormat = errors.New("無効なAPIキー形式です")

	keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// CheckFormat 长度在 [30,50] 且只包含字母、数字、下划线、连字符
// 不发起任何网络请求
func CheckFormat(key string) error {
	if n := len(key); n < MinLength || n > MaxLength {
		return ErrInvalidFormat
	}
	if !keyPattern.MatchString(key) {
		return ErrInvalidFormat
	}
	return nil
}

// Result 密钥校验结果
type Result struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

// Service 密钥校验服务
type Service struct {
	backend generator.Backend
	log     *zap.Logger
}

// NewService 创建密钥校验服务
func NewService(backend generator.Backend, log *zap.Logger) *Service {
	return &Service{backend: backend, log: log}
}

// Validate 先检查格式，再用一次极小的生成请求确认密钥可用
func (s *Service) Validate(ctx context.Context, key string) *Result {
	if err := CheckFormat(key); err != nil {
		return &Result{IsValid: false, Error: err.Error()}
	}

	if _, err := s.backend.Generate(ctx, &generator.Request{Prompt: "test", APIKey: key}); err != nil {
		s.log.Info("api key live check failed", zap.String("backend", s.backend.Name()), zap.Error(err))
		return &Result{IsValid: false}
	}
	return &Result{IsValid: true}
}
