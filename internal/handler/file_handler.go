package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/ai-toolbox/internal/service"
	"github.com/ashwinyue/ai-toolbox/internal/service/file"
	"github.com/ashwinyue/ai-toolbox/internal/service/types"
)

// FileHandler 图片上传处理器
type FileHandler struct {
	base
	svc *service.Services
}

// NewFileHandler 创建上传处理器
func NewFileHandler(svc *service.Services, b base) *FileHandler {
	return &FileHandler{base: b, svc: svc}
}

// UploadImage 上传图片，multipart 字段名为 image
func (h *FileHandler) UploadImage(c *gin.Context) {
	// 留出 multipart 头部的余量
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, file.MaxUploadSize+1<<20)

	fh, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.fail(c, types.FieldError("image", "ファイルサイズが大きすぎます。"))
			return
		}
		h.fail(c, types.FieldError("image", "画像ファイルが提供されていません"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.fail(c, types.Internal("画像のアップロードに失敗しました", err))
		return
	}
	defer f.Close()

	res, err := h.svc.File.Upload(c.Request.Context(), &file.UploadRequest{
		FileName: fh.Filename,
		Size:     fh.Size,
		Reader:   f,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	Success(c, res)
}
