// Package preference 按匿名客户端保存收藏与运行历史
package preference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/model"
	"github.com/ashwinyue/ai-toolbox/internal/service/types"
)

// Favorite 收藏项
type Favorite struct {
	ToolSlug string    `json:"toolSlug"`
	AddedAt  time.Time `json:"addedAt"`
}

// HistoryItem 历史项
type HistoryItem struct {
	ID        string                 `json:"id"`
	ToolSlug  string                 `json:"toolSlug"`
	Inputs    map[string]interface{} `json:"inputs"`
	Output    model.Output           `json:"output"`
	CreatedAt time.Time              `json:"createdAt"`
}

// Meta 数据版本信息
type Meta struct {
	Version    int        `json:"version"`
	MigratedAt *time.Time `json:"migratedAt,omitempty"`
}

// Config 偏好存储配置
type Config struct {
	Namespace    string
	HistoryLimit int
	TTL          time.Duration
}

// Service 偏好服务
type Service struct {
	kv    KV
	cfg   Config
	log   *zap.Logger
	now   func() time.Time

	locksMu sync.Mutex
	locks   map[string]*clientLock
}

// clientLock 同一客户端的读写串行，无人持有时从 locks 中移除
type clientLock struct {
	mu   sync.Mutex
	refs int
}

// NewService 创建偏好服务
func NewService(kv KV, cfg Config, log *zap.Logger) *Service {
	if cfg.Namespace == "" {
		cfg.Namespace = "mvp"
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	return &Service{
		kv:    kv,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		locks: make(map[string]*clientLock),
	}
}

func (s *Service) key(anonID, name string) string {
	return fmt.Sprintf("%s:%s:%s", s.cfg.Namespace, anonID, name)
}

func (s *Service) lock(anonID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[anonID]
	if !ok {
		l = &clientLock{}
		s.locks[anonID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		if l.refs--; l.refs == 0 {
			delete(s.locks, anonID)
		}
		s.locksMu.Unlock()
	}
}

func checkAnonID(anonID string) error {
	if strings.TrimSpace(anonID) == "" {
		return types.FieldError("X-Anon-ID", "必須項目です")
	}
	return nil
}

// ensureCurrent 读取 meta，版本落后时先备份再逐级迁移
func (s *Service) ensureCurrent(ctx context.Context, anonID string) error {
	metaRaw, ok, err := s.kv.Get(ctx, s.key(anonID, "meta"))
	if err != nil {
		return types.Internal("failed to read preferences", err)
	}

	var meta Meta
	if ok {
		if err := json.Unmarshal([]byte(metaRaw), &meta); err != nil || meta.Version < 1 {
			meta.Version = 1
		}
		if meta.Version >= CurrentVersion {
			return nil
		}
	}

	favRaw, hasFav, err := s.kv.Get(ctx, s.key(anonID, "favorites"))
	if err != nil {
		return types.Internal("failed to read preferences", err)
	}
	histRaw, hasHist, err := s.kv.Get(ctx, s.key(anonID, "history"))
	if err != nil {
		return types.Internal("failed to read preferences", err)
	}

	if !ok {
		if !hasFav && !hasHist {
			return s.writeMeta(ctx, anonID, Meta{Version: CurrentVersion})
		}
		// 没有 meta 但已有数据，视为 v1
		meta.Version = 1
	}

	snap := &snapshot{Version: meta.Version}
	if hasFav {
		snap.Favorites = json.RawMessage(favRaw)
	}
	if hasHist {
		snap.History = json.RawMessage(histRaw)
	}

	now := s.now().UTC()
	backup, err := json.Marshal(snap)
	if err != nil {
		return types.Internal("failed to back up preferences", err)
	}
	backupKey := s.key(anonID, "backup_"+now.Format("20060102"))
	if err := s.kv.Set(ctx, backupKey, string(backup), 0); err != nil {
		return types.Internal("failed to back up preferences", err)
	}

	from := snap.Version
	if err := migrate(snap, now); err != nil {
		s.log.Error("preference migration failed", zap.String("anon_id", anonID), zap.Int("from", from), zap.Error(err))
		return types.Internal("failed to migrate preferences", err)
	}
	if len(snap.Favorites) > 0 {
		if err := s.kv.Set(ctx, s.key(anonID, "favorites"), string(snap.Favorites), s.cfg.TTL); err != nil {
			return types.Internal("failed to save preferences", err)
		}
	}
	if len(snap.History) > 0 {
		if err := s.kv.Set(ctx, s.key(anonID, "history"), string(snap.History), s.cfg.TTL); err != nil {
			return types.Internal("failed to save preferences", err)
		}
	}

	s.log.Info("preferences migrated",
		zap.String("anon_id", anonID),
		zap.Int("from", from),
		zap.Int("to", CurrentVersion),
		zap.String("backup", backupKey),
	)
	return s.writeMeta(ctx, anonID, Meta{Version: CurrentVersion, MigratedAt: &now})
}

func (s *Service) writeMeta(ctx context.Context, anonID string, meta Meta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return types.Internal("failed to save preferences", err)
	}
	if err := s.kv.Set(ctx, s.key(anonID, "meta"), string(raw), s.cfg.TTL); err != nil {
		return types.Internal("failed to save preferences", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, anonID, name string, v interface{}) error {
	raw, ok, err := s.kv.Get(ctx, s.key(anonID, name))
	if err != nil {
		return types.Internal("failed to read preferences", err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return types.Internal("failed to decode preferences", err)
	}
	return nil
}

func (s *Service) save(ctx context.Context, anonID, name string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return types.Internal("failed to encode preferences", err)
	}
	if err := s.kv.Set(ctx, s.key(anonID, name), string(raw), s.cfg.TTL); err != nil {
		return types.Internal("failed to save preferences", err)
	}
	return nil
}

// ========== 收藏 ==========

// ListFavorites 列出收藏
func (s *Service) ListFavorites(ctx context.Context, anonID string) ([]Favorite, error) {
	if err := checkAnonID(anonID); err != nil {
		return nil, err
	}
	defer s.lock(anonID)()

	if err := s.ensureCurrent(ctx, anonID); err != nil {
		return nil, err
	}
	favs := []Favorite{}
	if err := s.load(ctx, anonID, "favorites", &favs); err != nil {
		return nil, err
	}
	return favs, nil
}

// FavoriteSlugs 收藏的 slug 列表，保证非 nil
func (s *Service) FavoriteSlugs(ctx context.Context, anonID string) ([]string, error) {
	favs, err := s.ListFavorites(ctx, anonID)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(favs))
	for _, f := range favs {
		slugs = append(slugs, f.ToolSlug)
	}
	return slugs, nil
}

// AddFavorite 添加收藏，已存在时不变
func (s *Service) AddFavorite(ctx context.Context, anonID, slug string) ([]Favorite, error) {
	if err := checkAnonID(anonID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(slug) == "" {
		return nil, types.FieldError("toolSlug", "必須項目です")
	}
	defer s.lock(anonID)()

	if err := s.ensureCurrent(ctx, anonID); err != nil {
		return nil, err
	}
	favs := []Favorite{}
	if err := s.load(ctx, anonID, "favorites", &favs); err != nil {
		return nil, err
	}
	for _, f := range favs {
		if f.ToolSlug == slug {
			return favs, nil
		}
	}
	favs = append(favs, Favorite{ToolSlug: slug, AddedAt: s.now().UTC()})
	if err := s.save(ctx, anonID, "favorites", favs); err != nil {
		return nil, err
	}
	return favs, nil
}

// RemoveFavorite 移除收藏
func (s *Service) RemoveFavorite(ctx context.Context, anonID, slug string) ([]Favorite, error) {
	if err := checkAnonID(anonID); err != nil {
		return nil, err
	}
	defer s.lock(anonID)()

	if err := s.ensureCurrent(ctx, anonID); err != nil {
		return nil, err
	}
	favs := []Favorite{}
	if err := s.load(ctx, anonID, "favorites", &favs); err != nil {
		return nil, err
	}
	kept := make([]Favorite, 0, len(favs))
	for _, f := range favs {
		if f.ToolSlug != slug {
			kept = append(kept, f)
		}
	}
	if err := s.save(ctx, anonID, "favorites", kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// ========== 历史 ==========

// HistoryInput 新增历史的参数
type HistoryInput struct {
	ToolSlug string                 `json:"toolSlug"`
	Inputs   map[string]interface{} `json:"inputs"`
	Output   model.Output           `json:"output"`
}

// ListHistory 列出历史，最新在前
func (s *Service) ListHistory(ctx context.Context, anonID string) ([]HistoryItem, error) {
	if err := checkAnonID(anonID); err != nil {
		return nil, err
	}
	defer s.lock(anonID)()

	if err := s.ensureCurrent(ctx, anonID); err != nil {
		return nil, err
	}
	items := []HistoryItem{}
	if err := s.load(ctx, anonID, "history", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AddHistory 在头部插入历史并截断到上限
func (s *Service) AddHistory(ctx context.Context, anonID string, in HistoryInput) (*HistoryItem, error) {
	if err := checkAnonID(anonID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ToolSlug) == "" {
		return nil, types.FieldError("toolSlug", "必須項目です")
	}
	defer s.lock(anonID)()

	if err := s.ensureCurrent(ctx, anonID); err != nil {
		return nil, err
	}
	items := []HistoryItem{}
	if err := s.load(ctx, anonID, "history", &items); err != nil {
		return nil, err
	}

	item := HistoryItem{
		ID:        uuid.New().String(),
		ToolSlug:  in.ToolSlug,
		Inputs:    in.Inputs,
		Output:    in.Output,
		CreatedAt: s.now().UTC(),
	}
	items = append([]HistoryItem{item}, items...)
	if len(items) > s.cfg.HistoryLimit {
		items = items[:s.cfg.HistoryLimit]
	}

	if err := s.save(ctx, anonID, "history", items); err != nil {
		return nil, err
	}
	return &item, nil
}

// ClearHistory 清空历史
func (s *Service) ClearHistory(ctx context.Context, anonID string) error {
	if err := checkAnonID(anonID); err != nil {
		return err
	}
	defer s.lock(anonID)()

	if err := s.kv.Del(ctx, s.key(anonID, "history")); err != nil {
		return types.Internal("failed to clear history", err)
	}
	return nil
}

// RecordRun 记录一次工具运行
func (s *Service) RecordRun(ctx context.Context, anonID, toolSlug string, inputs map[string]interface{}, output model.Output) error {
	_, err := s.AddHistory(ctx, anonID, HistoryInput{ToolSlug: toolSlug, Inputs: inputs, Output: output})
	return err
}
