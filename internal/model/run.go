package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RunStatus 运行状态
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run 一次工具运行记录
// 提交时以 running 创建，生成结束后原地更新为 succeeded 或 failed
type Run struct {
	ID           string                     `json:"id" gorm:"primaryKey;size:36"`
	ToolSlug     string                     `json:"tool_slug" gorm:"size:100;index;not null"`
	AnonID       string                     `json:"anon_id,omitempty" gorm:"size:64;index"`
	Inputs       datatypes.JSONMap          `json:"inputs_json"`
	Output       datatypes.JSONType[Output] `json:"output_json"`
	Status       RunStatus                  `json:"status" gorm:"size:20;index"`
	Mode         string                     `json:"mode" gorm:"size:20"`
	Model        string                     `json:"model,omitempty" gorm:"size:64"`
	FallbackUsed bool                       `json:"fallback_used"`
	ErrorMessage string                     `json:"-" gorm:"type:text"`
	CreatedAt    time.Time                  `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt    time.Time                  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Run) TableName() string {
	return "runs"
}

// BeforeCreate GORM 钩子，创建前生成 UUID
func (r *Run) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
