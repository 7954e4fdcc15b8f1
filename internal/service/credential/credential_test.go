package credential

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/service/generator"
)

func TestCheckFormat(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		valid bool
	}{
		{"too short", strings.Repeat("a", 29), false},
		{"min length", strings.Repeat("a", 30), true},
		{"max length", strings.Repeat("Z", 50), true},
		{"too long", strings.Repeat("a", 51), false},
		{"allowed symbols", "AIza_abcdefghij-0123456789ABCDEFGH", true},
		{"space", "AIza abcdefghij-0123456789ABCDEFGH", false},
		{"dot", "AIza.abcdefghij-0123456789ABCDEFGH", false},
		{"non ascii", "ａIzaabcdefghij-0123456789ABCDEFGH", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFormat(tt.key)
			if (err == nil) != tt.valid {
				t.Errorf("CheckFormat(%q) error = %v, want valid=%v", tt.key, err, tt.valid)
			}
		})
	}
}

type fakeBackend struct {
	calls int
	err   error
}

func (f *fakeBackend) Name() string         { return "fake" }
func (f *fakeBackend) DefaultModel() string { return "fake-1" }
func (f *fakeBackend) Generate(ctx context.Context, req *generator.Request) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "ok", nil
}

func TestService_Validate(t *testing.T) {
	good := strings.Repeat("k", 39)

	t.Run("bad format never reaches backend", func(t *testing.T) {
		b := &fakeBackend{}
		res := NewService(b, zap.NewNop()).Validate(context.Background(), "short")
		if res.IsValid || res.Error == "" {
			t.Errorf("Validate() = %+v, want invalid with error", res)
		}
		if b.calls != 0 {
			t.Errorf("backend called %d times, want 0", b.calls)
		}
	})

	t.Run("live check passes", func(t *testing.T) {
		b := &fakeBackend{}
		res := NewService(b, zap.NewNop()).Validate(context.Background(), good)
		if !res.IsValid {
			t.Errorf("Validate() = %+v, want valid", res)
		}
		if b.calls != 1 {
			t.Errorf("backend called %d times, want 1", b.calls)
		}
	})

	t.Run("live check fails", func(t *testing.T) {
		b := &fakeBackend{err: errors.New("401")}
		res := NewService(b, zap.NewNop()).Validate(context.Background(), good)
		if res.IsValid {
			t.Errorf("Validate() = %+v, want invalid", res)
		}
	})
}
