// Package callback 提供 Eino Callback 日志支持
package callback

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// Logger 日志回调处理器，记录 ChatModel 的调用与用量
type Logger struct {
	log         *zap.Logger
	EnableDebug bool
}

var _ callbacks.Handler = (*Logger)(nil)

// NewLogger 创建日志回调处理器
func NewLogger(log *zap.Logger, enableDebug bool) *Logger {
	return &Logger{log: log, EnableDebug: enableDebug}
}

func runFields(info *callbacks.RunInfo) []zap.Field {
	if info == nil {
		return nil
	}
	return []zap.Field{
		zap.String("name", info.Name),
		zap.String("type", info.Type),
		zap.String("component", string(info.Component)),
	}
}

// OnStart 组件执行开始时调用
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if !l.EnableDebug {
		return ctx
	}
	fields := runFields(info)
	if in := model.ConvCallbackInput(input); in != nil {
		fields = append(fields, zap.Int("messages", len(in.Messages)))
		if in.Config != nil {
			fields = append(fields, zap.String("model", in.Config.Model))
		}
	}
	l.log.Debug("chat model start", fields...)
	return ctx
}

// OnEnd 记录 token 用量
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	fields := runFields(info)
	if out := model.ConvCallbackOutput(output); out != nil && out.TokenUsage != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", out.TokenUsage.PromptTokens),
			zap.Int("completion_tokens", out.TokenUsage.CompletionTokens),
			zap.Int("total_tokens", out.TokenUsage.TotalTokens),
		)
	}
	l.log.Info("chat model end", fields...)
	return ctx
}

// OnError 组件执行出错时调用
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	l.log.Warn("chat model error", append(runFields(info), zap.Error(err))...)
	return ctx
}

// OnStartWithStreamInput 流式输入开始时调用
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	if l.EnableDebug {
		l.log.Debug("chat model stream start", runFields(info)...)
	}
	return ctx
}

// OnEndWithStreamOutput 流式输出结束时调用
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	if l.EnableDebug {
		l.log.Debug("chat model stream end", runFields(info)...)
	}
	return ctx
}

// SetupGlobalCallbacks 设置全局回调，进程启动时调用一次
func SetupGlobalCallbacks(log *zap.Logger, enableDebug bool) {
	callbacks.AppendGlobalHandlers(NewLogger(log, enableDebug))
	log.Info("eino global callbacks registered", zap.Bool("debug", enableDebug))
}
