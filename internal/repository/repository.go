package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Pinger 存储健康检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB   *gorm.DB // file 驱动下为 nil
	Tool ToolRepository
	Run  RunRepository

	pinger Pinger
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:   db,
		Tool: NewToolRepository(db),
		Run:  NewRunRepository(db),
	}
}

// Ping 检查底层存储连接
func (r *Repositories) Ping(ctx context.Context) error {
	if r.pinger != nil {
		return r.pinger.Ping(ctx)
	}
	if r.DB == nil {
		return errors.New("no database configured")
	}
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
