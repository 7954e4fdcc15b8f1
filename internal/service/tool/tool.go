// Package tool 工具目录：公开查询与管理员增删
package tool

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/model"
	"github.com/ashwinyue/ai-toolbox/internal/repository"
	"github.com/ashwinyue/ai-toolbox/internal/service/form"
	"github.com/ashwinyue/ai-toolbox/internal/service/types"
)

var (
	slugPattern       = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,99}$`)
	localImagePattern = regexp.MustCompile(`(?i)^/images/.+\.(jpg|jpeg|png|webp|svg|gif|avif|bmp|ico)$`)
)

// FavoriteSource 提供匿名客户端的收藏 slug
type FavoriteSource interface {
	FavoriteSlugs(ctx context.Context, anonID string) ([]string, error)
}

// ImageRemover 删除工具后清理其上传的缩略图
type ImageRemover interface {
	RemoveImage(ctx context.Context, imageURL string) error
}

// Config 工具服务配置
type Config struct {
	// ProtectedSlugs 不允许删除的工具
	ProtectedSlugs []string
}

// Service 工具服务
type Service struct {
	repo      *repository.Repositories
	favorites FavoriteSource
	images    ImageRemover
	protected map[string]bool
	log       *zap.Logger
}

// NewService 创建工具服务，favorites 可为 nil
func NewService(repo *repository.Repositories, favorites FavoriteSource, cfg Config, log *zap.Logger) *Service {
	protected := make(map[string]bool, len(cfg.ProtectedSlugs))
	for _, slug := range cfg.ProtectedSlugs {
		protected[slug] = true
	}
	return &Service{
		repo:      repo,
		favorites: favorites,
		protected: protected,
		log:       log,
	}
}

// WithImageRemover 设置缩略图清理，未设置时删除工具不动图片
func (s *Service) WithImageRemover(r ImageRemover) *Service {
	s.images = r
	return s
}

// ListRequest 列出工具请求
type ListRequest struct {
	Order string
	Query string
	// Slugs 非 nil 时只返回这些工具
	Slugs []string
	// OnlyFavorites 只返回 AnonID 收藏的工具
	OnlyFavorites bool
	AnonID        string
}

// List 列出公开工具
func (s *Service) List(ctx context.Context, req *ListRequest) ([]*model.Tool, error) {
	filter := repository.ToolFilter{
		PublicOnly: true,
		Query:      req.Query,
		Order:      repository.ToolOrderPopular,
		Slugs:      req.Slugs,
	}
	if req.Order == string(repository.ToolOrderLatest) {
		filter.Order = repository.ToolOrderLatest
	}

	if req.OnlyFavorites {
		if s.favorites == nil {
			filter.Slugs = []string{}
		} else {
			slugs, err := s.favorites.FavoriteSlugs(ctx, req.AnonID)
			if err != nil {
				return nil, err
			}
			filter.Slugs = slugs
		}
	}

	tools, err := s.repo.Tool.List(ctx, filter)
	if err != nil {
		return nil, types.Internal("ツールの取得に失敗しました", err)
	}
	return tools, nil
}

// Get 获取公开工具，草稿与不存在同样返回 404
func (s *Service) Get(ctx context.Context, slug string) (*model.Tool, error) {
	tool, err := s.repo.Tool.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(slug)
		}
		return nil, types.Internal("ツールの取得に失敗しました", err)
	}
	if !tool.IsPublic() {
		return nil, notFound(slug)
	}
	return tool, nil
}

// CreateRequest 创建工具请求
type CreateRequest struct {
	Slug           string        `json:"slug"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Type           string        `json:"type"`
	ImageURL       string        `json:"image_url"`
	Status         string        `json:"status"`
	FormSchema     []model.Field `json:"form_schema_json"`
	PromptTemplate string        `json:"prompt_template"`
}

// Normalize 去除首尾空白并补齐默认值
func (r *CreateRequest) Normalize() {
	r.Slug = strings.TrimSpace(r.Slug)
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.ImageURL = strings.TrimSpace(r.ImageURL)
	if r.Type == "" {
		r.Type = string(model.ToolTypeText)
	}
	if r.Status == "" {
		r.Status = string(model.ToolStatusPublic)
	}
	if r.ImageURL == "" {
		r.ImageURL = model.PlaceholderImageURL
	}
	if r.FormSchema == nil {
		r.FormSchema = []model.Field{}
	}
}

// Validate 校验创建请求，返回字段到错误信息的映射
func (r *CreateRequest) Validate() map[string]string {
	problems := map[string]string{}
	required := map[string]string{
		"slug":            r.Slug,
		"name":            r.Name,
		"description":     r.Description,
		"prompt_template": strings.TrimSpace(r.PromptTemplate),
	}
	for field, v := range required {
		if v == "" {
			problems[field] = form.MessageRequired
		}
	}

	if r.Slug != "" && !slugPattern.MatchString(r.Slug) {
		problems["slug"] = "英小文字・数字・ハイフンのみ使用できます"
	}
	if !model.ToolType(r.Type).Valid() {
		problems["type"] = fmt.Sprintf("unknown type: %s", r.Type)
	}
	if !model.ToolStatus(r.Status).Valid() {
		problems["status"] = fmt.Sprintf("unknown status: %s", r.Status)
	}
	if !validImageURL(r.ImageURL) {
		problems["image_url"] = "無効な画像URLです"
	}

	schemaProblems, err := form.ValidateSchema(r.FormSchema)
	if err != nil {
		problems["form_schema_json"] = err.Error()
	}
	for k, v := range schemaProblems {
		problems[k] = v
	}
	return problems
}

func validImageURL(raw string) bool {
	if raw == model.PlaceholderImageURL || localImagePattern.MatchString(raw) {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Create 管理员创建工具
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*model.Tool, error) {
	req.Normalize()
	if problems := req.Validate(); len(problems) > 0 {
		return nil, types.Validation("バリデーションエラー", problems)
	}

	tool := &model.Tool{
		Slug:           req.Slug,
		Name:           req.Name,
		Description:    req.Description,
		Type:           model.ToolType(req.Type),
		ImageURL:       req.ImageURL,
		Status:         model.ToolStatus(req.Status),
		FormSchema:     req.FormSchema,
		PromptTemplate: req.PromptTemplate,
	}
	if err := s.repo.Tool.Create(ctx, tool); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, types.FieldError("slug", fmt.Sprintf("slug '%s' は既に使用されています", req.Slug))
		}
		return nil, types.Internal("ツールの追加に失敗しました", err)
	}

	s.log.Info("tool created", zap.String("slug", tool.Slug), zap.String("name", tool.Name))
	return tool, nil
}

// Delete 管理员删除工具，受保护的工具总是拒绝
func (s *Service) Delete(ctx context.Context, slug string) (*model.Tool, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, types.FieldError("slug", "slugが指定されていません")
	}
	if s.protected[slug] {
		return nil, types.Forbidden(fmt.Sprintf("ツール '%s' は削除できません", slug))
	}
	if !slugPattern.MatchString(slug) {
		return nil, types.FieldError("slug", "英小文字・数字・ハイフンのみ使用できます")
	}

	deleted, err := s.repo.Tool.DeleteBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, types.NotFound("指定されたツールが見つかりません")
		}
		return nil, types.Internal("ツールの削除に失敗しました", err)
	}

	s.log.Info("tool deleted", zap.String("slug", deleted.Slug))
	s.removeImage(context.WithoutCancel(ctx), deleted)
	return deleted, nil
}

// removeImage 其他工具仍在使用时保留图片，清理失败只记录日志
func (s *Service) removeImage(ctx context.Context, deleted *model.Tool) {
	if s.images == nil || deleted.ImageURL == "" || deleted.ImageURL == model.PlaceholderImageURL {
		return
	}
	rest, err := s.repo.Tool.List(ctx, repository.ToolFilter{})
	if err != nil {
		s.log.Warn("failed to check image references", zap.String("slug", deleted.Slug), zap.Error(err))
		return
	}
	for _, t := range rest {
		if t.ImageURL == deleted.ImageURL {
			return
		}
	}
	if err := s.images.RemoveImage(ctx, deleted.ImageURL); err != nil {
		s.log.Warn("failed to remove tool image",
			zap.String("slug", deleted.Slug),
			zap.String("image_url", deleted.ImageURL),
			zap.Error(err),
		)
	}
}

// IsProtected 是否为受保护工具
func (s *Service) IsProtected(slug string) bool {
	return s.protected[slug]
}

func notFound(slug string) error {
	return types.NotFound(fmt.Sprintf("ツール '%s' が見つかりません", slug))
}
