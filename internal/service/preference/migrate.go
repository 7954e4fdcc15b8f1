package preference

import (
	"encoding/json"
	"fmt"
	"time"
)

// CurrentVersion 当前数据版本
const CurrentVersion = 2

// snapshot 一个匿名客户端的原始数据
type snapshot struct {
	Favorites json.RawMessage `json:"favorites,omitempty"`
	History   json.RawMessage `json:"history,omitempty"`
	Version   int             `json:"version"`
}

// migration 把 from 版本的数据转换为 from+1 版本
type migration func(s *snapshot, now time.Time) error

var migrations = map[int]migration{
	1: migrateV1toV2,
}

// migrate 依次执行迁移直到 CurrentVersion
func migrate(s *snapshot, now time.Time) error {
	for s.Version < CurrentVersion {
		m, ok := migrations[s.Version]
		if !ok {
			return fmt.Errorf("no migration from version %d", s.Version)
		}
		if err := m(s, now); err != nil {
			return fmt.Errorf("migrate v%d: %w", s.Version, err)
		}
		s.Version++
	}
	return nil
}

type historyV1 struct {
	ID        string                 `json:"id"`
	ToolSlug  string                 `json:"tool_slug"`
	Inputs    map[string]interface{} `json:"inputs"`
	Output    json.RawMessage        `json:"output"`
	CreatedAt time.Time              `json:"created_at"`
}

// migrateV1toV2 v1 收藏是 slug 数组，v1 历史使用下划线字段名
func migrateV1toV2(s *snapshot, now time.Time) error {
	if len(s.Favorites) > 0 {
		var slugs []string
		if err := json.Unmarshal(s.Favorites, &slugs); err == nil {
			favs := make([]Favorite, 0, len(slugs))
			seen := map[string]bool{}
			for _, slug := range slugs {
				if slug == "" || seen[slug] {
					continue
				}
				seen[slug] = true
				favs = append(favs, Favorite{ToolSlug: slug, AddedAt: now})
			}
			raw, err := json.Marshal(favs)
			if err != nil {
				return err
			}
			s.Favorites = raw
		}
	}

	if len(s.History) > 0 {
		var old []historyV1
		if err := json.Unmarshal(s.History, &old); err != nil {
			return fmt.Errorf("decode v1 history: %w", err)
		}
		items := make([]HistoryItem, 0, len(old))
		for _, h := range old {
			item := HistoryItem{
				ID:        h.ID,
				ToolSlug:  h.ToolSlug,
				Inputs:    h.Inputs,
				CreatedAt: h.CreatedAt,
			}
			if len(h.Output) > 0 {
				// 无法识别的旧结果丢弃，保留其余字段
				_ = json.Unmarshal(h.Output, &item.Output)
			}
			items = append(items, item)
		}
		raw, err := json.Marshal(items)
		if err != nil {
			return err
		}
		s.History = raw
	}
	return nil
}
