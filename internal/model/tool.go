package model

import (
	"time"

	"gorm.io/datatypes"
)

// PlaceholderImageURL 默认缩略图
const PlaceholderImageURL = "/images/placeholder.svg"

// ToolType 工具输出类型
type ToolType string

const (
	ToolTypeText    ToolType = "text"
	ToolTypeImage   ToolType = "image"
	ToolTypeWhisper ToolType = "whisper"
	ToolTypeMovie   ToolType = "movie"
)

// Valid 是否为已知类型
func (t ToolType) Valid() bool {
	switch t {
	case ToolTypeText, ToolTypeImage, ToolTypeWhisper, ToolTypeMovie:
		return true
	}
	return false
}

// ToolStatus 工具发布状态
type ToolStatus string

const (
	ToolStatusPublic ToolStatus = "public"
	ToolStatusDraft  ToolStatus = "draft"
)

// Valid 是否为已知状态
func (s ToolStatus) Valid() bool {
	return s == ToolStatusPublic || s == ToolStatusDraft
}

// Tool 工具定义
// Slug 创建后不可修改，作为 URL 与运行记录的外部标识
type Tool struct {
	ID             uint                       `json:"id" gorm:"primaryKey;autoIncrement"`
	Slug           string                     `json:"slug" gorm:"size:100;uniqueIndex;not null"`
	Name           string                     `json:"name" gorm:"size:255;not null"`
	Description    string                     `json:"description" gorm:"type:text"`
	Type           ToolType                   `json:"type" gorm:"size:20;index;default:text"`
	ImageURL       string                     `json:"image_url" gorm:"size:1024"`
	UsageCount     int64                      `json:"usage_count" gorm:"not null;default:0;index"`
	Status         ToolStatus                 `json:"status" gorm:"size:20;index;default:draft"`
	FormSchema     datatypes.JSONSlice[Field] `json:"form_schema_json"`
	PromptTemplate string                     `json:"prompt_template" gorm:"type:text"`
	CreatedAt      time.Time                  `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (Tool) TableName() string {
	return "tools"
}

// IsPublic 是否可对外提供与运行
func (t *Tool) IsPublic() bool {
	return t.Status == ToolStatusPublic
}
