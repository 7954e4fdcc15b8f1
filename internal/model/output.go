package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// OutputKind 生成结果的形态
type OutputKind string

const (
	OutputKindText  OutputKind = "text"
	OutputKindItems OutputKind = "items"
)

// OutputItem 列表形态结果中的一项
type OutputItem struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Output 生成结果
// 线上格式没有类型字段，只有 {"text": ...} 或 {"items": [...]} 两种，
// 解码时按 key 是否存在区分，Kind 只存在于进程内
type Output struct {
	Kind  OutputKind
	Text  string
	Items []OutputItem
}

// TextOutput 创建文本结果
func TextOutput(text string) Output {
	return Output{Kind: OutputKindText, Text: text}
}

// ItemsOutput 创建列表结果
func ItemsOutput(items []OutputItem) Output {
	if items == nil {
		items = []OutputItem{}
	}
	return Output{Kind: OutputKindItems, Items: items}
}

// IsZero 是否尚未产生结果
func (o Output) IsZero() bool {
	return o.Kind == ""
}

type textWire struct {
	Text string `json:"text"`
}

type itemsWire struct {
	Items []OutputItem `json:"items"`
}

// MarshalJSON 编码为线上格式
func (o Output) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case OutputKindText:
		return json.Marshal(textWire{Text: o.Text})
	case OutputKindItems:
		items := o.Items
		if items == nil {
			items = []OutputItem{}
		}
		return json.Marshal(itemsWire{Items: items})
	case "":
		return []byte("null"), nil
	default:
		return nil, errors.New("unknown output kind: " + string(o.Kind))
	}
}

// UnmarshalJSON 按 key 存在与否解码，items 优先
func (o *Output) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Output{}
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if items, ok := raw["items"]; ok {
		var parsed []OutputItem
		if err := json.Unmarshal(items, &parsed); err != nil {
			return err
		}
		*o = ItemsOutput(parsed)
		return nil
	}
	if text, ok := raw["text"]; ok {
		var parsed string
		if err := json.Unmarshal(text, &parsed); err != nil {
			return err
		}
		*o = TextOutput(parsed)
		return nil
	}

	return errors.New("output has neither text nor items")
}
