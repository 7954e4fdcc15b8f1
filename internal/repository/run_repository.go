package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ashwinyue/ai-toolbox/internal/model"
)

// GormRunRepository 运行记录数据访问
type GormRunRepository struct {
	db *gorm.DB
}

// NewRunRepository 创建运行记录仓库
func NewRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// Create 创建运行记录
func (r *GormRunRepository) Create(ctx context.Context, run *model.Run) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// Finish 更新运行的最终状态
func (r *GormRunRepository) Finish(ctx context.Context, id string, result RunResult) error {
	res := r.db.WithContext(ctx).Model(&model.Run{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        result.Status,
		"output":        datatypes.NewJSONType(result.Output),
		"fallback_used": result.FallbackUsed,
		"error_message": result.ErrorMessage,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to finish run: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID 获取运行记录
func (r *GormRunRepository) GetByID(ctx context.Context, id string) (*model.Run, error) {
	var run model.Run
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListByTool 列出某个工具最近的运行记录
func (r *GormRunRepository) ListByTool(ctx context.Context, slug string, limit int) ([]*model.Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs := []*model.Run{}
	err := r.db.WithContext(ctx).
		Where("tool_slug = ?", slug).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
