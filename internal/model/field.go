package model

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldKind 表单控件类型
type FieldKind string

const (
	FieldKindInput    FieldKind = "input"
	FieldKindTextarea FieldKind = "textarea"
	FieldKindSelect   FieldKind = "select"
	FieldKindSwitch   FieldKind = "switch"
)

// Valid 是否为已知控件类型
func (k FieldKind) Valid() bool {
	switch k {
	case FieldKindInput, FieldKindTextarea, FieldKindSelect, FieldKindSwitch:
		return true
	}
	return false
}

// FieldOption select 控件的选项
type FieldOption struct {
	Label string `json:"label" jsonschema:"minLength=1"`
	Value string `json:"value"`
}

// Field 表单字段描述
// Name 同时作为表单值的 key 与提示词模板中的占位符名
type Field struct {
	Name        string        `json:"name" jsonschema:"minLength=1,pattern=^[A-Za-z0-9_]+$"`
	Label       string        `json:"label"`
	Kind        FieldKind     `json:"kind" jsonschema:"enum=input,enum=textarea,enum=select,enum=switch"`
	Required    bool          `json:"required,omitempty"`
	Help        string        `json:"help,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	Options     []FieldOption `json:"options,omitempty"`
	Col         int           `json:"col,omitempty" jsonschema:"minimum=1,maximum=12"`
	MaxLength   int           `json:"maxLength,omitempty" jsonschema:"minimum=0"`
}

// StringifyValue 将表单值转换为字符串，nil 视为空串
func StringifyValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, StringifyValue(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}
