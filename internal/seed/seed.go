// Package seed 从 JSON 或 YAML 文件导入工具目录
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ashwinyue/ai-toolbox/internal/model"
	"github.com/ashwinyue/ai-toolbox/internal/service/form"
)

// File 种子文件结构 {"tools": [...]}
type File struct {
	Tools []*model.Tool `json:"tools"`
}

// Upserter 以 slug 为键写入工具
type Upserter interface {
	Upsert(ctx context.Context, tool *model.Tool) error
}

// Report 导入结果
type Report struct {
	Succeeded int
	Failed    int
	Errors    map[string]error
}

// Load 读取种子文件，.yaml/.yml 按 YAML 解析，其余按 JSON
func Load(path string) ([]*model.Tool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		// 经由通用结构转成 JSON，复用模型上的 json 标签
		var doc interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
		if raw, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("failed to convert yaml: %w", err)
		}
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return f.Tools, nil
}

// Run 逐个校验并写入工具，单个失败不影响其余工具
func Run(ctx context.Context, repo Upserter, tools []*model.Tool, log *zap.Logger) *Report {
	report := &Report{Errors: map[string]error{}}
	for i, tool := range tools {
		key := tool.Slug
		if key == "" {
			key = fmt.Sprintf("#%d", i)
		}
		if err := check(tool); err != nil {
			report.Failed++
			report.Errors[key] = err
			log.Warn("seed tool rejected", zap.String("slug", key), zap.Error(err))
			continue
		}
		if err := repo.Upsert(ctx, tool); err != nil {
			report.Failed++
			report.Errors[key] = err
			log.Error("seed tool failed", zap.String("slug", key), zap.Error(err))
			continue
		}
		report.Succeeded++
		log.Info("seed tool upserted", zap.String("slug", tool.Slug))
	}
	return report
}

func check(tool *model.Tool) error {
	if tool.Slug == "" || tool.Name == "" {
		return fmt.Errorf("slug and name are required")
	}
	if tool.Type == "" {
		tool.Type = model.ToolTypeText
	}
	if tool.Status == "" {
		tool.Status = model.ToolStatusDraft
	}
	if tool.ImageURL == "" {
		tool.ImageURL = model.PlaceholderImageURL
	}
	if !tool.Type.Valid() || !tool.Status.Valid() {
		return fmt.Errorf("invalid type %q or status %q", tool.Type, tool.Status)
	}
	if tool.FormSchema == nil {
		tool.FormSchema = []model.Field{}
	}
	problems, err := form.ValidateSchema(tool.FormSchema)
	if err != nil {
		return err
	}
	if len(problems) == 0 {
		return nil
	}
	keys := make([]string, 0, len(problems))
	for k := range problems {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Errorf("%s: %s", keys[0], problems[keys[0]])
}
