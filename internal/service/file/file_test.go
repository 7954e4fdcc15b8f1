package file

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/service/types"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir, "/images/uploads/")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	svc := NewService(storage, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 34, 56, 789000000, time.UTC) }
	return svc, dir
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeConfig(t *testing.T, path string) image.Config {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("DecodeConfig(%s) error = %v", path, err)
	}
	return cfg
}

func fieldCode(t *testing.T, err error) *types.Error {
	t.Helper()
	var te *types.Error
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *types.Error", err)
	}
	return te
}

func TestUpload_ResizesLargePNG(t *testing.T) {
	svc, dir := newTestService(t)
	data := encodePNG(t, 3840, 1280)

	res, err := svc.Upload(context.Background(), &UploadRequest{
		FileName: "my banner.png",
		Size:     int64(len(data)),
		Reader:   bytes.NewReader(data),
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	want := "/images/uploads/2024-05-01T12-34-56_my_banner.png"
	if !res.Success || res.ImageURL != want {
		t.Fatalf("Upload() = %+v, want url %s", res, want)
	}

	cfg := decodeConfig(t, filepath.Join(dir, "2024-05-01T12-34-56_my_banner.png"))
	if cfg.Width != 1920 || cfg.Height != 640 {
		t.Errorf("stored size = %dx%d, want 1920x640", cfg.Width, cfg.Height)
	}
}

func TestUpload_SmallJPEGNotEnlarged(t *testing.T) {
	svc, dir := newTestService(t)
	data := encodeJPEG(t, 320, 200)

	res, err := svc.Upload(context.Background(), &UploadRequest{FileName: "photo.jpeg", Reader: bytes.NewReader(data)})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasSuffix(res.ImageURL, "_photo.jpg") {
		t.Errorf("ImageURL = %s, want .jpg suffix", res.ImageURL)
	}

	cfg := decodeConfig(t, filepath.Join(dir, filepath.Base(res.ImageURL)))
	if cfg.Width != 320 || cfg.Height != 200 {
		t.Errorf("stored size = %dx%d, want 320x200", cfg.Width, cfg.Height)
	}
}

func TestUpload_SVGStoredAsIs(t *testing.T) {
	svc, dir := newTestService(t)
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`)

	res, err := svc.Upload(context.Background(), &UploadRequest{FileName: "icon.svg", Reader: bytes.NewReader(svg)})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	stored, err := os.ReadFile(filepath.Join(dir, filepath.Base(res.ImageURL)))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(stored, svg) {
		t.Error("svg content was modified")
	}
	if !strings.HasSuffix(res.ImageURL, "_icon.svg") {
		t.Errorf("ImageURL = %s", res.ImageURL)
	}
}

func TestUpload_Rejections(t *testing.T) {
	pngData := encodePNG(t, 4, 4)
	tests := []struct {
		name string
		req  *UploadRequest
		msg  string
	}{
		{
			name: "declared size over limit",
			req:  &UploadRequest{FileName: "a.png", Size: MaxUploadSize + 1, Reader: bytes.NewReader(pngData)},
			msg:  "ファイルサイズが大きすぎます",
		},
		{
			name: "body over limit",
			req:  &UploadRequest{FileName: "a.png", Reader: bytes.NewReader(make([]byte, MaxUploadSize+10))},
			msg:  "ファイルサイズが大きすぎます",
		},
		{
			name: "not an image",
			req:  &UploadRequest{FileName: "a.png", Reader: strings.NewReader("just some text")},
			msg:  "対応していないファイル形式です",
		},
		{
			name: "name without safe characters",
			req:  &UploadRequest{FileName: "画像", Reader: bytes.NewReader(pngData)},
			msg:  "無効なファイル名です",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, dir := newTestService(t)
			_, err := svc.Upload(context.Background(), tt.req)
			te := fieldCode(t, err)
			if te.Code != types.CodeValidation {
				t.Fatalf("code = %s, want %s", te.Code, types.CodeValidation)
			}
			if !strings.Contains(te.Fields["image"], tt.msg) {
				t.Errorf("Fields[image] = %q, want contains %q", te.Fields["image"], tt.msg)
			}
			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Errorf("files written on rejection: %d", len(entries))
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.png", "photo.png"},
		{"my photo (1).png", "my_photo_1_.png"},
		{"__a__b__", "a_b"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"画像", ""},
		{strings.Repeat("a", 150) + ".png", strings.Repeat("a", 100)},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFitInside(t *testing.T) {
	tests := []struct {
		w, h, wantW, wantH int
	}{
		{800, 600, 800, 600},
		{1920, 1080, 1920, 1080},
		{3840, 2160, 1920, 1080},
		{1000, 2160, 500, 1080},
		{4000, 1, 1920, 1},
	}
	for _, tt := range tests {
		w, h := fitInside(tt.w, tt.h, MaxWidth, MaxHeight)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitInside(%d, %d) = %dx%d, want %dx%d", tt.w, tt.h, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "/images/uploads")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	name, err := s.Save(ctx, &SaveRequest{ObjectName: "a.png", Reader: strings.NewReader("x")})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := s.GetURL(name); got != "/images/uploads/a.png" {
		t.Errorf("GetURL() = %s", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.png")); err != nil {
		t.Errorf("saved file missing: %v", err)
	}

	if _, err := s.Save(ctx, &SaveRequest{ObjectName: "../escape.png", Reader: strings.NewReader("x")}); err == nil {
		t.Error("Save() with path traversal succeeded")
	}

	for url, want := range map[string]string{
		"/images/uploads/a.png":     "a.png",
		"/images/uploads/../a.png":  "",
		"/images/placeholder.svg":   "",
		"https://example.com/a.png": "",
		"/images/uploads/sub/a.png": "",
	} {
		got, ok := s.ObjectName(url)
		if got != want || ok != (want != "") {
			t.Errorf("ObjectName(%q) = %q, %v; want %q", url, got, ok, want)
		}
	}

	if err := s.Delete(ctx, name); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, name); err != nil {
		t.Errorf("Delete() of missing file error = %v", err)
	}
}

func TestService_RemoveImage(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	res, err := svc.Upload(ctx, &UploadRequest{FileName: "thumb.png", Reader: bytes.NewReader(encodePNG(t, 8, 8))})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	stored := filepath.Join(dir, filepath.Base(res.ImageURL))

	// 不属于上传目录的地址不处理
	for _, url := range []string{"/images/placeholder.svg", "https://example.com/thumb.png"} {
		if err := svc.RemoveImage(ctx, url); err != nil {
			t.Errorf("RemoveImage(%q) error = %v", url, err)
		}
	}
	if _, err := os.Stat(stored); err != nil {
		t.Fatalf("upload removed by unrelated url: %v", err)
	}

	if err := svc.RemoveImage(ctx, res.ImageURL); err != nil {
		t.Fatalf("RemoveImage() error = %v", err)
	}
	if _, err := os.Stat(stored); !os.IsNotExist(err) {
		t.Errorf("stat after remove: err = %v, want not exist", err)
	}
}
