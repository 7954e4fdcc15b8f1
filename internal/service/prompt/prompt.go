// Package prompt 根据模板与表单值生成提示词
package prompt

import (
	"sort"
	"strings"

	"github.com/ashwinyue/ai-toolbox/internal/model"
)

// Token 返回字段对应的占位符，形如 %s_body%
func Token(name string) string {
	return "%s_" + name + "%"
}

// Build 将模板中已提供值的占位符替换为值的字符串形式
// 没有对应值的占位符原样保留；替换是纯文本替换，不做转义
func Build(template string, values map[string]interface{}) string {
	if len(values) == 0 || template == "" {
		return template
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names)*2)
	for _, name := range names {
		pairs = append(pairs, Token(name), model.StringifyValue(values[name]))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
