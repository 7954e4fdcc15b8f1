package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage 本地文件存储，目录由静态路由对外提供
type LocalStorage struct {
	basePath  string // 基础路径
	urlPrefix string // URL前缀，用于生成访问URL
}

// NewLocalStorage 创建本地存储服务
func NewLocalStorage(basePath, urlPrefix string) (*LocalStorage, error) {
	// 确保基础路径存在
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		basePath:  basePath,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
	}, nil
}

// Save 保存文件到本地
func (s *LocalStorage) Save(ctx context.Context, req *SaveRequest) (string, error) {
	name, err := cleanObjectName(req.ObjectName)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, name)

	// 先写临时文件再改名，避免读到半个文件
	tmp, err := os.CreateTemp(s.basePath, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, req.Reader); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return name, nil
}

// Delete 删除文件
func (s *LocalStorage) Delete(ctx context.Context, objectName string) error {
	name, err := cleanObjectName(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.basePath, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetURL 获取文件的访问URL
func (s *LocalStorage) GetURL(objectName string) string {
	return fmt.Sprintf("%s/%s", s.urlPrefix, objectName)
}

// cleanObjectName 对象名只能是基础路径下的单个文件
func cleanObjectName(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid object name: %q", name)
	}
	return name, nil
}

// ObjectName 从访问URL还原文件名
func (s *LocalStorage) ObjectName(url string) (string, bool) {
	name, ok := strings.CutPrefix(url, s.urlPrefix+"/")
	if !ok {
		return "", false
	}
	if _, err := cleanObjectName(name); err != nil {
		return "", false
	}
	return name, true
}
