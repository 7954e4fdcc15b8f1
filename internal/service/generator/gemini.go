package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ashwinyue/ai-toolbox/internal/config"
)

// Gemini 基于 genai 的生成后端
// 调用方密钥随请求变化，因此每次生成单独创建客户端
type Gemini struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
}

// NewGemini 创建 Gemini 后端
func NewGemini(cfg config.GeminiConfig) *Gemini {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   model,
		timeout: time.Duration(cfg.Timeout) * time.Second,
	}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) DefaultModel() string { return g.model }

// Generate 调用 Gemini 生成文本
func (g *Gemini) Generate(ctx context.Context, req *Request) (string, error) {
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = g.apiKey
	}
	if apiKey == "" {
		return "", ErrNoCredential
	}

	modelName := req.Model
	if modelName == "" {
		modelName = g.model
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if g.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(req.Prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return text, nil
}
