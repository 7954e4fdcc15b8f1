package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Request 描述一次测试请求
type Request struct {
	Method  string
	Path    string
	Body    interface{} // 非 nil 时编码为 JSON；[]byte 原样发送
	Headers map[string]string
}

// Do 直接在 handler 上执行请求
func Do(t *testing.T, h http.Handler, r Request) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	switch b := r.Body.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != nil {
		if _, raw := r.Body.([]byte); !raw {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// DecodeJSON 解码响应体
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

// ErrorBody 错误响应结构
type ErrorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}
