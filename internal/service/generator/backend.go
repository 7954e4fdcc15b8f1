package generator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ashwinyue/ai-toolbox/internal/model"
)

// ErrNoCredential 既没有调用方密钥也没有服务端默认密钥
var ErrNoCredential = errors.New("no credential available for live generation")

// Request 一次外部生成请求
type Request struct {
	Prompt string
	Model  string // 为空时使用后端默认模型
	APIKey string // 调用方密钥，优先于服务端默认密钥
}

// Backend 外部 AI 生成后端
type Backend interface {
	Name() string
	DefaultModel() string
	Generate(ctx context.Context, req *Request) (string, error)
}

// ShapeLive 将外部后端返回的文本整理为结果
// top5 类工具尝试解析为列表，失败时按文本返回
func ShapeLive(tool *model.Tool, text string) model.Output {
	if Classify(tool) == ClassTop5 {
		if items, ok := parseItems(text); ok {
			return model.ItemsOutput(items)
		}
	}
	return model.TextOutput(text)
}

// parseItems 解析 [{"title","body"}] 或 {"items":[...]}，容忍代码块与轻微格式错误
func parseItems(text string) ([]model.OutputItem, bool) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	if !json.Valid([]byte(s)) {
		repaired, err := jsonrepair.JSONRepair(s)
		if err != nil {
			return nil, false
		}
		s = repaired
	}

	var items []model.OutputItem
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &items); err != nil {
			return nil, false
		}
	} else {
		var wrapped struct {
			Items []model.OutputItem `json:"items"`
		}
		if err := json.Unmarshal([]byte(s), &wrapped); err != nil {
			return nil, false
		}
		items = wrapped.Items
	}

	if len(items) == 0 {
		return nil, false
	}
	for _, it := range items {
		if strings.TrimSpace(it.Title) == "" && strings.TrimSpace(it.Body) == "" {
			return nil, false
		}
	}
	return items, true
}
