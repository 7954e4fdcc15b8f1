// Package testutil 提供测试辅助工具
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ashwinyue/ai-toolbox/internal/model"
	"github.com/ashwinyue/ai-toolbox/internal/service/generator"
)

// RewriteTool 受保护的默认工具
func RewriteTool() *model.Tool {
	return &model.Tool{
		Slug:        "rewrite",
		Name:        "文章リライト",
		Description: "文章を指定したトーンで書き直します",
		Type:        model.ToolTypeText,
		ImageURL:    model.PlaceholderImageURL,
		Status:      model.ToolStatusPublic,
		FormSchema: []model.Field{
			{Name: "body", Label: "本文", Kind: model.FieldKindTextarea, Required: true, MaxLength: 2000, Col: 12},
			{Name: "tone", Label: "トーン", Kind: model.FieldKindSelect, Options: []model.FieldOption{
				{Label: "丁寧", Value: "丁寧"},
				{Label: "カジュアル", Value: "カジュアル"},
			}, Col: 6},
		},
		PromptTemplate: "次の文章を%s_tone%なトーンで書き直してください。\n\n%s_body%",
	}
}

// Top5Tool 列表结果工具
func Top5Tool() *model.Tool {
	return &model.Tool{
		Slug:        "tiktok-5picks",
		Name:        "TikTok 5選",
		Description: "文章から5つの要点を抜き出します",
		Type:        model.ToolTypeText,
		ImageURL:    model.PlaceholderImageURL,
		Status:      model.ToolStatusPublic,
		FormSchema: []model.Field{
			{Name: "source", Label: "元の文章", Kind: model.FieldKindTextarea, Required: true},
		},
		PromptTemplate: "次の文章から要点を5つ、JSON配列で出力してください: %s_source%",
	}
}

// DraftTool 未公开工具
func DraftTool() *model.Tool {
	return &model.Tool{
		Slug:           "draft-tool",
		Name:           "下書き",
		Description:    "未公開のツール",
		Type:           model.ToolTypeText,
		ImageURL:       model.PlaceholderImageURL,
		Status:         model.ToolStatusDraft,
		FormSchema:     []model.Field{},
		PromptTemplate: "%s_body%",
	}
}

// SampleTools 测试用工具集合
func SampleTools() []*model.Tool {
	return []*model.Tool{RewriteTool(), Top5Tool(), DraftTool()}
}

// ToolCreator 可写入工具的仓库
type ToolCreator interface {
	Create(ctx context.Context, tool *model.Tool) error
}

// SeedTools 写入工具，失败时终止测试
func SeedTools(t *testing.T, repo ToolCreator, tools ...*model.Tool) {
	t.Helper()
	for _, tool := range tools {
		if err := repo.Create(context.Background(), tool); err != nil {
			t.Fatalf("seed tool %s: %v", tool.Slug, err)
		}
	}
}

// NewTestDB 创建独立的内存 sqlite 数据库并完成迁移
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.New().String() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.AllModels...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// StubBackend 可编排的生成后端
type StubBackend struct {
	BackendName string
	Model       string
	Text        string
	Err         error
	Delay       time.Duration

	mu    sync.Mutex
	calls []*generator.Request
}

func (b *StubBackend) Name() string { return b.BackendName }

func (b *StubBackend) DefaultModel() string { return b.Model }

func (b *StubBackend) Generate(ctx context.Context, req *generator.Request) (string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, req)
	b.mu.Unlock()

	if b.Delay > 0 {
		select {
		case <-time.After(b.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if b.Err != nil {
		return "", b.Err
	}
	return b.Text, nil
}

// Calls 返回收到的请求
func (b *StubBackend) Calls() []*generator.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*generator.Request(nil), b.calls...)
}
