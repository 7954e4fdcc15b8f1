package file

import (
	"context"
	"fmt"
	"io"

	"github.com/ashwinyue/ai-toolbox/internal/config"
)

// Storage 文件存储接口
type Storage interface {
	// Save 以指定对象名保存文件，返回对象名
	Save(ctx context.Context, req *SaveRequest) (string, error)
	// Delete 删除文件
	Delete(ctx context.Context, objectName string) error
	// GetURL 获取文件的访问URL
	GetURL(objectName string) string
	// ObjectName 由 GetURL 生成的地址反查对象名，不属于本存储时返回 false
	ObjectName(url string) (string, bool)
}

// SaveRequest 保存文件请求
type SaveRequest struct {
	ObjectName  string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// StorageType 存储类型
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeMinIO StorageType = "minio"
)

// NewStorage 按配置创建存储
func NewStorage(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch StorageType(cfg.Type) {
	case "", StorageTypeLocal:
		return NewLocalStorage(cfg.BasePath, cfg.URLPrefix)
	case StorageTypeMinIO:
		m := cfg.MinIO
		if m.Endpoint == "" || m.AccessKey == "" || m.SecretKey == "" || m.Bucket == "" {
			return nil, fmt.Errorf("missing required MinIO config")
		}
		urlPrefix := m.URLPrefix
		if urlPrefix == "" {
			scheme := "http"
			if m.UseSSL {
				scheme = "https"
			}
			urlPrefix = fmt.Sprintf("%s://%s", scheme, m.Endpoint)
		}
		return NewMinIOStorage(ctx, &MinIOConfig{
			Endpoint:   m.Endpoint,
			AccessKey:  m.AccessKey,
			SecretKey:  m.SecretKey,
			BucketName: m.Bucket,
			Region:     m.Region,
			UseSSL:     m.UseSSL,
			URLPrefix:  urlPrefix,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
