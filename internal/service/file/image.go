package file

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"regexp"
	"strings"

	"golang.org/x/image/draw"

	// 注册解码器
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	// MaxWidth 上传图片的最大宽度
	MaxWidth = 1920
	// MaxHeight 上传图片的最大高度
	MaxHeight = 1080
	// JPEGQuality 重新编码 JPEG 的质量
	JPEGQuality = 85
)

// fitInside 等比缩放到 maxW×maxH 以内，不放大
func fitInside(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// optimizeImage 解码、缩放并重新编码位图
// JPEG 输出 jpg，其余格式统一输出 png
func optimizeImage(data []byte, mime string) ([]byte, string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	b := src.Bounds()
	w, h := fitInside(b.Dx(), b.Dy(), MaxWidth, MaxHeight)
	out := src
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if mime == "image/jpeg" {
		if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return nil, "", fmt.Errorf("failed to encode jpeg: %w", err)
		}
		return buf.Bytes(), "jpg", nil
	}
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, out); err != nil {
		return nil, "", fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), "png", nil
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	underscores = regexp.MustCompile(`_{2,}`)
	extension   = regexp.MustCompile(`\.[^/.]+$`)
)

// SanitizeFilename 只保留安全字符，最长 100
func SanitizeFilename(name string) string {
	s := unsafeChars.ReplaceAllString(name, "_")
	s = underscores.ReplaceAllString(s, "_")
	s = strings.TrimPrefix(s, "_")
	s = strings.TrimSuffix(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// stem 去掉扩展名
func stem(name string) string {
	return extension.ReplaceAllString(name, "")
}
