// Package generator 提供结果生成：确定性的 mock 与外部 AI 后端
package generator

import (
	"fmt"
	"strings"

	"github.com/ashwinyue/ai-toolbox/internal/model"
)

// Class 工具的生成类别，决定 mock 结果的形态
type Class int

const (
	ClassDefault Class = iota
	ClassRewrite
	ClassTop5
)

const (
	top5Count       = 5
	defaultTone     = "丁寧"
	defaultPreview  = 100
	rewriteSlug     = "rewrite"
	top5SlugKeyword = "5picks"
)

// Classify 按 slug 判断工具类别
func Classify(tool *model.Tool) Class {
	switch {
	case tool.Slug == rewriteSlug:
		return ClassRewrite
	case strings.Contains(tool.Slug, top5SlugKeyword):
		return ClassTop5
	default:
		return ClassDefault
	}
}

// Mock 确定性生成器，不发起任何外部调用
type Mock struct{}

// Generate 根据工具类别生成结果
func (Mock) Generate(tool *model.Tool, inputs map[string]interface{}) model.Output {
	body := sourceText(inputs)

	switch Classify(tool) {
	case ClassRewrite:
		tone := model.StringifyValue(inputs["tone"])
		if tone == "" {
			tone = defaultTone
		}
		if text := rewrite(body, tone); text != "" {
			return model.TextOutput(text)
		}
		return model.TextOutput(fmt.Sprintf("【%sなトーンで】リライトされた文章です。", tone))

	case ClassTop5:
		return model.ItemsOutput(top5(body))

	default:
		return model.TextOutput(fmt.Sprintf("%sの結果: %s...", tool.Name, truncateRunes(body, defaultPreview)))
	}
}

// sourceText 取 body，为空时取 source
func sourceText(inputs map[string]interface{}) string {
	if body := model.StringifyValue(inputs["body"]); body != "" {
		return body
	}
	return model.StringifyValue(inputs["source"])
}

// rewrite 按语气替换句尾，一次扫描完成，替换结果不会被再次匹配
func rewrite(body, tone string) string {
	casual := strings.Contains(tone, "カジュアル")
	polite := strings.Contains(tone, "丁寧")

	desu, masu, dearu := "でございます", "ございます", "だ"
	if casual {
		desu, masu = "だよ", "るよ"
	}
	if polite {
		dearu = "でございます"
	}

	return strings.NewReplacer("です", desu, "ます", masu, "である", dearu).Replace(body)
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '。', '．', '！', '？', '!', '?', '\n':
		return true
	}
	return false
}

// top5 按句末标点切分，取前 5 个非空片段，不足时补占位内容
func top5(body string) []model.OutputItem {
	items := make([]model.OutputItem, 0, top5Count)
	for _, seg := range strings.FieldsFunc(body, isSentenceEnd) {
		if len(items) == top5Count {
			break
		}
		if seg = strings.TrimSpace(seg); seg == "" {
			continue
		}
		items = append(items, model.OutputItem{
			Title: fmt.Sprintf("ポイント%d", len(items)+1),
			Body:  seg,
		})
	}
	for i := len(items); i < top5Count; i++ {
		items = append(items, model.OutputItem{
			Title: fmt.Sprintf("ポイント%d", i+1),
			Body:  fmt.Sprintf("要点%dの内容です。", i+1),
		})
	}
	return items
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
