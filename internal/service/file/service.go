// Package file 管理员上传图片：校验、优化与存储
package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/service/types"
)

// MaxUploadSize 上传大小上限
const MaxUploadSize = 5 << 20

// allowedTypes 允许上传的 MIME 与原样保存时的扩展名
var allowedTypes = []struct {
	mime      string
	ext       string
	optimized bool
}{
	{"image/jpeg", "jpg", true},
	{"image/png", "png", true},
	{"image/webp", "webp", true},
	{"image/bmp", "bmp", true},
	{"image/svg+xml", "svg", false},
	{"image/gif", "gif", false},
	{"image/avif", "avif", false},
	{"image/x-icon", "ico", false},
}

// Service 图片上传服务
type Service struct {
	storage Storage
	log     *zap.Logger
	now     func() time.Time
}

// NewService 创建上传服务
func NewService(storage Storage, log *zap.Logger) *Service {
	return &Service{storage: storage, log: log, now: time.Now}
}

// UploadRequest 上传请求
type UploadRequest struct {
	FileName string
	Size     int64
	Reader   io.Reader
}

// UploadResult 上传结果
type UploadResult struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl"`
}

// Upload 校验并保存图片
func (s *Service) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if req.Size > MaxUploadSize {
		return nil, tooLarge()
	}
	data, err := io.ReadAll(io.LimitReader(req.Reader, MaxUploadSize+1))
	if err != nil {
		return nil, types.Internal("画像のアップロードに失敗しました", err)
	}
	if len(data) > MaxUploadSize {
		return nil, tooLarge()
	}

	detected := mimetype.Detect(data)
	var (
		mime     string
		ext      string
		optimize bool
	)
	for _, t := range allowedTypes {
		if detected.Is(t.mime) {
			mime, ext, optimize = t.mime, t.ext, t.optimized
			break
		}
	}
	if mime == "" {
		return nil, types.FieldError("image", "対応していないファイル形式です。JPG, PNG, WebP, SVG, GIF, AVIF, BMP, ICO形式に対応しています。")
	}

	name := SanitizeFilename(req.FileName)
	if name == "" {
		return nil, types.FieldError("image", "無効なファイル名です。")
	}

	if optimize {
		data, ext, err = optimizeImage(data, mime)
		if err != nil {
			return nil, types.Internal("画像の最適化に失敗しました", err)
		}
		if ext == "jpg" {
			mime = "image/jpeg"
		} else {
			mime = "image/png"
		}
	}

	objectName := s.filename(name, ext)
	saved, err := s.storage.Save(ctx, &SaveRequest{
		ObjectName:  objectName,
		ContentType: mime,
		Size:        int64(len(data)),
		Reader:      bytes.NewReader(data),
	})
	if err != nil {
		return nil, types.Internal("画像のアップロードに失敗しました", err)
	}

	url := s.storage.GetURL(saved)
	s.log.Info("image uploaded",
		zap.String("original_name", req.FileName),
		zap.String("saved_as", saved),
		zap.String("size", humanize.IBytes(uint64(len(data)))),
		zap.String("url", url),
	)
	return &UploadResult{Success: true, ImageURL: url}, nil
}

// RemoveImage 删除本存储上传的图片，其他地址直接忽略
func (s *Service) RemoveImage(ctx context.Context, imageURL string) error {
	name, ok := s.storage.ObjectName(imageURL)
	if !ok {
		return nil
	}
	if err := s.storage.Delete(ctx, name); err != nil {
		return err
	}
	s.log.Info("image removed", zap.String("object", name), zap.String("url", imageURL))
	return nil
}

// filename 生成 <UTC 时间戳>_<文件名>.<扩展名>
func (s *Service) filename(sanitized, ext string) string {
	base := stem(sanitized)
	if base == "" {
		base = "image"
	}
	ts := s.now().UTC().Format("2006-01-02T15-04-05")
	return fmt.Sprintf("%s_%s.%s", ts, base, ext)
}

func tooLarge() error {
	return types.FieldError("image", fmt.Sprintf("ファイルサイズが大きすぎます。最大%sまでです。", humanize.IBytes(MaxUploadSize)))
}
