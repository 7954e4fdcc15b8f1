package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/ai-toolbox/internal/config"
)

// OpenAI 基于 eino ChatModel 的 OpenAI 兼容后端
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
}

// NewOpenAI 创建 OpenAI 兼容后端
func NewOpenAI(cfg config.OpenAIConfig) *OpenAI {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   model,
		timeout: time.Duration(cfg.Timeout) * time.Second,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) DefaultModel() string { return o.model }

// Generate 调用 ChatModel 生成文本
func (o *OpenAI) Generate(ctx context.Context, req *Request) (string, error) {
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = o.apiKey
	}
	if apiKey == "" {
		return "", ErrNoCredential
	}

	modelName := req.Model
	if modelName == "" {
		modelName = o.model
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: o.baseURL,
		Model:   modelName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat model: %w", err)
	}

	// 全局回调记录调用与 token 用量
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      "openai",
		Type:      "OpenAI",
		Component: components.ComponentOfChatModel,
	})
	msg, err := chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(req.Prompt)})
	if err != nil {
		return "", fmt.Errorf("openai generation failed: %w", err)
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return "", fmt.Errorf("openai returned empty response")
	}
	return text, nil
}
