package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ashwinyue/ai-toolbox/internal/model"
)

// GormToolRepository 工具数据访问
type GormToolRepository struct {
	db *gorm.DB
}

// NewToolRepository 创建工具仓库
func NewToolRepository(db *gorm.DB) *GormToolRepository {
	return &GormToolRepository{db: db}
}

// List 列出工具
func (r *GormToolRepository) List(ctx context.Context, filter ToolFilter) ([]*model.Tool, error) {
	tools := []*model.Tool{}
	if filter.Slugs != nil && len(filter.Slugs) == 0 {
		return tools, nil
	}

	q := r.db.WithContext(ctx).Model(&model.Tool{})
	if filter.PublicOnly {
		q = q.Where("status = ?", model.ToolStatusPublic)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	if filter.Slugs != nil {
		q = q.Where("slug IN ?", filter.Slugs)
	}

	switch filter.Order {
	case ToolOrderLatest:
		q = q.Order("created_at DESC").Order("id DESC")
	default:
		q = q.Order("usage_count DESC").Order("id ASC")
	}

	if err := q.Find(&tools).Error; err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return tools, nil
}

// GetBySlug 根据 slug 获取工具
func (r *GormToolRepository) GetBySlug(ctx context.Context, slug string) (*model.Tool, error) {
	var tool model.Tool
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tool: %w", err)
	}
	return &tool, nil
}

// Create 创建工具
func (r *GormToolRepository) Create(ctx context.Context, tool *model.Tool) error {
	if err := r.db.WithContext(ctx).Create(tool).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to create tool: %w", err)
	}
	return nil
}

// Upsert 以 slug 为冲突键写入工具
func (r *GormToolRepository) Upsert(ctx context.Context, tool *model.Tool) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "type", "image_url", "status", "form_schema", "prompt_template",
		}),
	}).Create(tool).Error
	if err != nil {
		return fmt.Errorf("failed to upsert tool %s: %w", tool.Slug, err)
	}
	return nil
}

// DeleteBySlug 删除工具，同一事务内删除其运行记录
func (r *GormToolRepository) DeleteBySlug(ctx context.Context, slug string) (*model.Tool, error) {
	var deleted model.Tool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("slug = ?", slug).First(&deleted).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Where("tool_slug = ?", slug).Delete(&model.Run{}).Error; err != nil {
			return fmt.Errorf("failed to delete runs: %w", err)
		}
		return tx.Delete(&model.Tool{}, deleted.ID).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete tool: %w", err)
	}
	return &deleted, nil
}

// IncrementUsage 使用次数加一
func (r *GormToolRepository) IncrementUsage(ctx context.Context, slug string) error {
	res := r.db.WithContext(ctx).Model(&model.Tool{}).
		Where("slug = ?", slug).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to increment usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count 工具总数
func (r *GormToolRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Tool{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count tools: %w", err)
	}
	return n, nil
}
