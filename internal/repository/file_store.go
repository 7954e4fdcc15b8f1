package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ashwinyue/ai-toolbox/internal/model"
)

// fileData 数据文件结构，兼容 {"tools": [...]} 格式
type fileData struct {
	Tools []*model.Tool `json:"tools"`
	Runs  []*model.Run  `json:"runs,omitempty"`
}

// FileStore 基于本地 JSON 文件的存储，数据库不可用时的回退方案
// 所有读写串行化；创建与删除前会在同目录写入备份文件
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileStore 创建文件存储，文件不存在时初始化为空目录
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FileStore{path: path, now: time.Now}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(&fileData{Tools: []*model.Tool{}}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat data file: %w", err)
	}
	return s, nil
}

// Ping 检查数据文件可读
func (s *FileStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _, err := s.read()
	return err
}

func (s *FileStore) read() (*fileData, []byte, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read data file: %w", err)
	}
	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, nil, fmt.Errorf("failed to parse data file: %w", err)
	}
	return &data, raw, nil
}

// write 先写临时文件再重命名
func (s *FileStore) write(data *fileData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}

func (s *FileStore) backup(raw []byte, kind string) error {
	name := fmt.Sprintf("tools.backup.%d.json", s.now().UnixMilli())
	if kind != "" {
		name = fmt.Sprintf("tools.backup.%s.%d.json", kind, s.now().UnixMilli())
	}
	if err := os.WriteFile(filepath.Join(filepath.Dir(s.path), name), raw, 0644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

func findTool(tools []*model.Tool, slug string) int {
	for i, t := range tools {
		if t.Slug == slug {
			return i
		}
	}
	return -1
}

func nextToolID(tools []*model.Tool) uint {
	var max uint
	for _, t := range tools {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

// NewFileRepositories 基于文件存储创建仓库集合
func NewFileRepositories(store *FileStore) *Repositories {
	return &Repositories{
		Tool:   &fileToolRepository{store: store},
		Run:    &fileRunRepository{store: store},
		pinger: store,
	}
}

// ========== 工具 ==========

type fileToolRepository struct {
	store *FileStore
}

func (r *fileToolRepository) List(ctx context.Context, filter ToolFilter) ([]*model.Tool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	data, _, err := r.store.read()
	if err != nil {
		return nil, err
	}

	var allowed map[string]bool
	if filter.Slugs != nil {
		allowed = make(map[string]bool, len(filter.Slugs))
		for _, s := range filter.Slugs {
			allowed[s] = true
		}
	}
	term := strings.ToLower(strings.TrimSpace(filter.Query))

	tools := []*model.Tool{}
	for _, t := range data.Tools {
		if filter.PublicOnly && !t.IsPublic() {
			continue
		}
		if allowed != nil && !allowed[t.Slug] {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(t.Name), term) &&
			!strings.Contains(strings.ToLower(t.Description), term) {
			continue
		}
		tools = append(tools, t)
	}

	switch filter.Order {
	case ToolOrderLatest:
		sort.SliceStable(tools, func(i, j int) bool {
			return tools[i].CreatedAt.After(tools[j].CreatedAt)
		})
	default:
		sort.SliceStable(tools, func(i, j int) bool {
			return tools[i].UsageCount > tools[j].UsageCount
		})
	}
	return tools, nil
}

func (r *fileToolRepository) GetBySlug(ctx context.Context, slug string) (*model.Tool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	data, _, err := r.store.read()
	if err != nil {
		return nil, err
	}
	if i := findTool(data.Tools, slug); i >= 0 {
		return data.Tools[i], nil
	}
	return nil, ErrNotFound
}

func (r *fileToolRepository) Create(ctx context.Context, tool *model.Tool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	data, raw, err := r.store.read()
	if err != nil {
		return err
	}
	if findTool(data.Tools, tool.Slug) >= 0 {
		return ErrDuplicateSlug
	}
	if err := r.store.backup(raw, ""); err != nil {
		return err
	}

	tool.ID = nextToolID(data.Tools)
	if tool.CreatedAt.IsZero() {
		tool.CreatedAt = r.store.now()
	}
	data.Tools = append(data.Tools, tool)
	return r.store.write(data)
}

func (r *fileToolRepository) Upsert(ctx context.Context, tool *model.Tool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	data, _, err := r.store.read()
	if err != nil {
		return err
	}
	if i := findTool(data.Tools, tool.Slug); i >= 0 {
		existing := data.Tools[i]
		tool.ID = existing.ID
		tool.UsageCount = existing.UsageCount
		tool.CreatedAt = existing.CreatedAt
		data.Tools[i] = tool
	} else {
		tool.ID = nextToolID(data.Tools)
		if tool.CreatedAt.IsZero() {
			tool.CreatedAt = r.store.now()
		}
		data.Tools = append(data.Tools, tool)
	}
	return r.store.write(data)
}

func (r *fileToolRepository) DeleteBySlug(ctx context.Context, slug string) (*model.Tool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	data, raw, err := r.store.read()
	if err != nil {
		return nil, err
	}
	i := findTool(data.Tools, slug)
	if i < 0 {
		return nil, ErrNotFound
	}
	if err := r.store.backup(raw, "delete"); err != nil {
		return nil, err
	}

	deleted := data.Tools[i]
	data.Tools = append(data.Tools[:i], data.Tools[i+1:]...)
	runs := data.Runs[:0]
	for _, run := range data.Runs {
		if run.ToolSlug != slug {
			runs = append(runs, run)
		}
	}
	data.Runs = runs

	if err := r.store.write(data); err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *fileToolRepository) IncrementUsage(ctx context.Context, slug string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	data, _, err := r.store.read()
	if err != nil {
		return err
	}
	i := findTool(data.Tools, slug)
	if i < 0 {
		return ErrNotFound
	}
	data.Tools[i].UsageCount++
	return r.store.write(data)
}

func (r *fileToolRepository) Count(ctx context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	data, _, err := r.store.read()
	if err != nil {
		return 0, err
	}
	return int64(len(data.Tools)), nil
}

// ========== 运行记录 ==========

type fileRunRepository struct {
	store *FileStore
}

func (r *fileRunRepository) Create(ctx context.Context, run *model.Run) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	data, _, err := r.store.read()
	if err != nil {
		return err
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	now := r.store.now()
	run.CreatedAt = now
	run.UpdatedAt = now
	data.Runs = append(data.Runs, run)
	return r.store.write(data)
}

func (r *fileRunRepository) Finish(ctx context.Context, id string, result RunResult) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	data, _, err := r.store.read()
	if err != nil {
		return err
	}
	for _, run := range data.Runs {
		if run.ID == id {
			run.Status = result.Status
			run.Output = datatypes.NewJSONType(result.Output)
			run.FallbackUsed = result.FallbackUsed
			run.ErrorMessage = result.ErrorMessage
			run.UpdatedAt = r.store.now()
			return r.store.write(data)
		}
	}
	return ErrNotFound
}

func (r *fileRunRepository) GetByID(ctx context.Context, id string) (*model.Run, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	data, _, err := r.store.read()
	if err != nil {
		return nil, err
	}
	for _, run := range data.Runs {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fileRunRepository) ListByTool(ctx context.Context, slug string, limit int) ([]*model.Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	data, _, err := r.store.read()
	if err != nil {
		return nil, err
	}
	runs := []*model.Run{}
	for i := len(data.Runs) - 1; i >= 0 && len(runs) < limit; i-- {
		if data.Runs[i].ToolSlug == slug {
			runs = append(runs, data.Runs[i])
		}
	}
	return runs, nil
}
