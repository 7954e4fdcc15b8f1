// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能
package repository

import (
	"context"
	"errors"

	"github.com/ashwinyue/ai-toolbox/internal/model"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateSlug slug 已被占用
	ErrDuplicateSlug = errors.New("slug already exists")
)

// ToolOrder 工具列表排序方式
type ToolOrder string

const (
	ToolOrderPopular ToolOrder = "popular"
	ToolOrderLatest  ToolOrder = "latest"
)

// ToolFilter 工具列表查询条件
type ToolFilter struct {
	PublicOnly bool
	Query      string    // 名称/描述模糊匹配，不区分大小写
	Order      ToolOrder // 默认 popular
	Slugs      []string  // 非 nil 时只返回这些 slug
}

// ========== ToolRepository 接口 ==========

// ToolRepository 工具目录数据访问接口
type ToolRepository interface {
	List(ctx context.Context, filter ToolFilter) ([]*model.Tool, error)
	GetBySlug(ctx context.Context, slug string) (*model.Tool, error)
	Create(ctx context.Context, tool *model.Tool) error
	// Upsert 以 slug 为键写入，已存在时不覆盖 usage_count
	Upsert(ctx context.Context, tool *model.Tool) error
	// DeleteBySlug 删除工具及引用它的运行记录，返回被删除的工具
	DeleteBySlug(ctx context.Context, slug string) (*model.Tool, error)
	// IncrementUsage 原子地将 usage_count 加一
	IncrementUsage(ctx context.Context, slug string) error
	Count(ctx context.Context) (int64, error)
}

// ========== RunRepository 接口 ==========

// RunRepository 运行记录数据访问接口
type RunRepository interface {
	Create(ctx context.Context, run *model.Run) error
	// Finish 写入最终状态与结果
	Finish(ctx context.Context, id string, result RunResult) error
	GetByID(ctx context.Context, id string) (*model.Run, error)
	ListByTool(ctx context.Context, slug string, limit int) ([]*model.Run, error)
}

// RunResult 运行结束时需要持久化的字段
type RunResult struct {
	Status       model.RunStatus
	Output       model.Output
	FallbackUsed bool
	ErrorMessage string
}

// 确保实现了接口
var (
	_ ToolRepository = (*GormToolRepository)(nil)
	_ RunRepository  = (*GormRunRepository)(nil)
	_ ToolRepository = (*fileToolRepository)(nil)
	_ RunRepository  = (*fileRunRepository)(nil)
)
