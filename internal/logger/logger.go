// Package logger 构建应用使用的 zap 日志器
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ashwinyue/ai-toolbox/internal/config"
)

// New 根据配置创建日志器
// debug 模式使用开发配置（彩色、可读），否则使用 JSON 生产配置
func New(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.App.Debug {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "ts"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	log, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return log.With(
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Environment),
	), nil
}
