package file

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioKeyPrefix 上传图片在 bucket 内的目录
const minioKeyPrefix = "uploads/"

// MinIOStorage 上传图片保存到 MinIO，访问地址为 <URLPrefix>/<bucket>/uploads/<文件名>
type MinIOStorage struct {
	client    *minio.Client
	bucket    string
	urlPrefix string
}

// MinIOConfig MinIO 连接参数
type MinIOConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	// Region 非空时不再查询 bucket 所在区域
	Region    string
	UseSSL    bool
	URLPrefix string
}

// NewMinIOStorage 连接 MinIO，bucket 不存在时创建
func NewMinIOStorage(ctx context.Context, cfg *MinIOConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.BucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.BucketName, err)
		}
	}

	return &MinIOStorage{
		client:    client,
		bucket:    cfg.BucketName,
		urlPrefix: strings.TrimSuffix(cfg.URLPrefix, "/"),
	}, nil
}

// Save 上传图片，返回带 uploads/ 前缀的对象名
func (s *MinIOStorage) Save(ctx context.Context, req *SaveRequest) (string, error) {
	key := minioKeyPrefix + req.ObjectName
	if _, err := s.client.PutObject(ctx, s.bucket, key, req.Reader, req.Size, minio.PutObjectOptions{
		ContentType:  req.ContentType,
		CacheControl: "public, max-age=31536000",
	}); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

// Delete 删除对象，对象不存在时 MinIO 同样返回成功
func (s *MinIOStorage) Delete(ctx context.Context, objectName string) error {
	if !strings.HasPrefix(objectName, minioKeyPrefix) {
		return fmt.Errorf("invalid object name: %q", objectName)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", objectName, err)
	}
	return nil
}

func (s *MinIOStorage) GetURL(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", s.urlPrefix, s.bucket, objectName)
}

// ObjectName 只认本 bucket 下 uploads/ 目录的地址
func (s *MinIOStorage) ObjectName(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, fmt.Sprintf("%s/%s/", s.urlPrefix, s.bucket))
	if !ok || !strings.HasPrefix(key, minioKeyPrefix) || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
