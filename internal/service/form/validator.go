// Package form 校验工具表单的提交值与表单定义本身
package form

import (
	"strings"
	"unicode/utf8"

	"github.com/ashwinyue/ai-toolbox/internal/model"
)

const (
	// MessageRequired 必填项为空
	MessageRequired = "必須項目です"
	// MessageTooLong 超出 maxLength，仅提示不阻断
	MessageTooLong = "長すぎます（自動要約されます）"
)

// Result 校验结果
// 同一字段只保留一条消息，必填错误优先于长度警告
type Result struct {
	Errors   map[string]string
	Warnings map[string]string
}

// Blocked 是否存在阻断提交的错误
func (r *Result) Blocked() bool {
	return len(r.Errors) > 0
}

// Messages 合并错误与警告，每个字段一条
func (r *Result) Messages() map[string]string {
	out := make(map[string]string, len(r.Errors)+len(r.Warnings))
	for k, v := range r.Warnings {
		out[k] = v
	}
	for k, v := range r.Errors {
		out[k] = v
	}
	return out
}

// Validate 按字段定义校验提交值
func Validate(fields []model.Field, values map[string]interface{}) *Result {
	res := &Result{
		Errors:   map[string]string{},
		Warnings: map[string]string{},
	}

	for _, f := range fields {
		str := model.StringifyValue(values[f.Name])

		if f.Required && strings.TrimSpace(str) == "" {
			res.Errors[f.Name] = MessageRequired
			continue
		}
		if f.MaxLength > 0 && utf8.RuneCountInString(str) > f.MaxLength {
			res.Warnings[f.Name] = MessageTooLong
		}
	}

	return res
}
