// Package run 实现工具运行流程：校验、生成、回退与持久化
package run

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/ashwinyue/ai-toolbox/internal/model"
	"github.com/ashwinyue/ai-toolbox/internal/repository"
	"github.com/ashwinyue/ai-toolbox/internal/service/credential"
	"github.com/ashwinyue/ai-toolbox/internal/service/form"
	"github.com/ashwinyue/ai-toolbox/internal/service/generator"
	"github.com/ashwinyue/ai-toolbox/internal/service/prompt"
	"github.com/ashwinyue/ai-toolbox/internal/service/types"
)

// ModeMock 使用确定性 mock 生成
const ModeMock = "mock"

// HistoryRecorder 记录匿名客户端的运行历史
type HistoryRecorder interface {
	RecordRun(ctx context.Context, anonID, toolSlug string, inputs map[string]interface{}, output model.Output) error
}

// Config 运行流程配置
type Config struct {
	DefaultMode string
	// AllowedModels 按模式限制可选模型，未列出的模式不限制
	AllowedModels map[string][]string
}

// Service 工具运行服务
type Service struct {
	repo     *repository.Repositories
	backends map[string]generator.Backend
	cfg      Config
	history  HistoryRecorder
	log      *zap.Logger
}

// NewService 创建运行服务，history 可为 nil
func NewService(repo *repository.Repositories, backends []generator.Backend, cfg Config, history HistoryRecorder, log *zap.Logger) *Service {
	m := make(map[string]generator.Backend, len(backends))
	for _, b := range backends {
		m[b.Name()] = b
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = ModeMock
	}
	return &Service{
		repo:     repo,
		backends: m,
		cfg:      cfg,
		history:  history,
		log:      log,
	}
}

// Request 运行请求
type Request struct {
	Inputs     map[string]interface{} `json:"inputs"`
	Mode       string                 `json:"mode"`
	Model      string                 `json:"model"`
	UserAPIKey string                 `json:"userApiKey"`
	AnonID     string                 `json:"-"`
}

// Response 运行结果
// Fallback 为 true 表示外部生成失败、返回的是 mock 结果
type Response struct {
	RunID    string            `json:"runId"`
	Output   model.Output      `json:"output"`
	Fallback bool              `json:"fallback,omitempty"`
	Warnings map[string]string `json:"warnings,omitempty"`
}

// Run 执行一次工具运行
// 工具不存在与校验失败在任何写入之前返回；外部生成失败总是回退到 mock，不作为请求错误
func (s *Service) Run(ctx context.Context, slug string, req *Request) (*Response, error) {
	tool, err := s.lookupTool(ctx, slug)
	if err != nil {
		return nil, err
	}

	inputs := req.Inputs
	if inputs == nil {
		inputs = map[string]interface{}{}
	}

	check := form.Validate(tool.FormSchema, inputs)
	if check.Blocked() {
		return nil, types.Validation("バリデーションエラー", check.Errors)
	}

	mode, modelName, err := s.resolveMode(req)
	if err != nil {
		return nil, err
	}

	rec := &model.Run{
		ToolSlug: tool.Slug,
		AnonID:   req.AnonID,
		Inputs:   datatypes.JSONMap(inputs),
		Status:   model.RunStatusRunning,
		Mode:     mode,
		Model:    modelName,
	}
	if err := s.repo.Run.Create(ctx, rec); err != nil {
		return nil, types.Internal("生成に失敗しました", err)
	}

	result := s.generate(ctx, tool, inputs, mode, modelName, req.UserAPIKey)

	// 生成结束后的写入不随请求取消
	persistCtx := context.WithoutCancel(ctx)
	if err := s.repo.Run.Finish(persistCtx, rec.ID, result); err != nil {
		return nil, types.Internal("生成に失敗しました", err)
	}
	if err := s.repo.Tool.IncrementUsage(persistCtx, tool.Slug); err != nil {
		return nil, types.Internal("生成に失敗しました", err)
	}

	if s.history != nil && req.AnonID != "" {
		if err := s.history.RecordRun(persistCtx, req.AnonID, tool.Slug, inputs, result.Output); err != nil {
			s.log.Warn("failed to record history", zap.String("anon_id", req.AnonID), zap.Error(err))
		}
	}

	resp := &Response{
		RunID:    rec.ID,
		Output:   result.Output,
		Fallback: result.FallbackUsed,
	}
	if len(check.Warnings) > 0 {
		resp.Warnings = check.Warnings
	}
	return resp, nil
}

// Get 获取运行记录
func (s *Service) Get(ctx context.Context, id string) (*model.Run, error) {
	rec, err := s.repo.Run.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, types.RunNotFound(fmt.Sprintf("実行 '%s' が見つかりません", id))
		}
		return nil, types.Internal("failed to get run", err)
	}
	return rec, nil
}

// ListByTool 列出公开工具最近的运行记录
func (s *Service) ListByTool(ctx context.Context, slug string, limit int) ([]*model.Run, error) {
	if _, err := s.lookupTool(ctx, slug); err != nil {
		return nil, err
	}
	runs, err := s.repo.Run.ListByTool(ctx, slug, limit)
	if err != nil {
		return nil, types.Internal("failed to list runs", err)
	}
	return runs, nil
}

func (s *Service) lookupTool(ctx context.Context, slug string) (*model.Tool, error) {
	tool, err := s.repo.Tool.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, types.NotFound(fmt.Sprintf("ツール '%s' が見つかりません", slug))
		}
		return nil, types.Internal("生成に失敗しました", err)
	}
	if !tool.IsPublic() {
		return nil, types.NotFound(fmt.Sprintf("ツール '%s' が見つかりません", slug))
	}
	return tool, nil
}

// resolveMode 校验模式、模型与调用方密钥格式，返回实际使用的模式与模型
func (s *Service) resolveMode(req *Request) (string, string, error) {
	mode := strings.TrimSpace(req.Mode)
	if mode == "" {
		mode = s.cfg.DefaultMode
	}
	if mode == ModeMock {
		return mode, "", nil
	}

	backend, ok := s.backends[mode]
	if !ok {
		return "", "", types.FieldError("mode", fmt.Sprintf("unsupported mode: %s", mode))
	}

	modelName := strings.TrimSpace(req.Model)
	if modelName != "" {
		if allowed, limited := s.cfg.AllowedModels[mode]; limited && !contains(allowed, modelName) {
			return "", "", types.FieldError("model", fmt.Sprintf("unsupported model: %s", modelName))
		}
	} else {
		modelName = backend.DefaultModel()
	}

	if req.UserAPIKey != "" {
		if err := credential.CheckFormat(req.UserAPIKey); err != nil {
			return "", "", types.FieldError("userApiKey", err.Error())
		}
	}
	return mode, modelName, nil
}

// generate 执行生成；外部调用失败时回退到 mock 并标记 failed
func (s *Service) generate(ctx context.Context, tool *model.Tool, inputs map[string]interface{}, mode, modelName, apiKey string) repository.RunResult {
	if mode == ModeMock {
		return repository.RunResult{
			Status: model.RunStatusSucceeded,
			Output: generator.Mock{}.Generate(tool, inputs),
		}
	}

	backend := s.backends[mode]
	text, err := backend.Generate(ctx, &generator.Request{
		Prompt: prompt.Build(tool.PromptTemplate, inputs),
		Model:  modelName,
		APIKey: apiKey,
	})
	if err != nil {
		s.log.Warn("live generation failed, falling back to mock",
			zap.String("tool", tool.Slug),
			zap.String("mode", mode),
			zap.String("model", modelName),
			zap.Error(err),
		)
		return repository.RunResult{
			Status:       model.RunStatusFailed,
			Output:       generator.Mock{}.Generate(tool, inputs),
			FallbackUsed: true,
			ErrorMessage: err.Error(),
		}
	}

	return repository.RunResult{
		Status: model.RunStatusSucceeded,
		Output: generator.ShapeLive(tool, text),
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
