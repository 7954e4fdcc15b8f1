package run

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/model"
	"github.com/ashwinyue/ai-toolbox/internal/repository"
	"github.com/ashwinyue/ai-toolbox/internal/service/generator"
	"github.com/ashwinyue/ai-toolbox/internal/service/types"
	"github.com/ashwinyue/ai-toolbox/internal/testutil"
)

const validKey = "AIzaSyA0123456789abcdefghijklmnopq"

func newRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	store, err := repository.NewFileStore(filepath.Join(t.TempDir(), "tools.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	repos := repository.NewFileRepositories(store)
	testutil.SeedTools(t, repos.Tool, testutil.SampleTools()...)
	return repos
}

func newService(repos *repository.Repositories, history HistoryRecorder, backends ...generator.Backend) *Service {
	return NewService(repos, backends, Config{
		DefaultMode:   ModeMock,
		AllowedModels: map[string][]string{"gemini": {"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite"}},
	}, history, zap.NewNop())
}

func usage(t *testing.T, repos *repository.Repositories, slug string) int64 {
	t.Helper()
	tool, err := repos.Tool.GetBySlug(context.Background(), slug)
	if err != nil {
		t.Fatalf("GetBySlug(%s) error = %v", slug, err)
	}
	return tool.UsageCount
}

func assertCode(t *testing.T, err error, code types.Code) *types.Error {
	t.Helper()
	var te *types.Error
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *types.Error with code %s", err, code)
	}
	if te.Code != code {
		t.Fatalf("code = %s, want %s", te.Code, code)
	}
	return te
}

func TestRun_MockRewrite(t *testing.T) {
	repos := newRepos(t)
	svc := newService(repos, nil)

	resp, err := svc.Run(context.Background(), "rewrite", &Request{
		Mode:   "mock",
		Inputs: map[string]interface{}{"body": "こんにちは。さようなら。"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Output.Kind != model.OutputKindText || resp.Output.Text == "" {
		t.Errorf("Output = %+v, want non-empty text", resp.Output)
	}
	if resp.Fallback {
		t.Error("Fallback = true for mock mode")
	}

	rec, err := svc.Get(context.Background(), resp.RunID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Status != model.RunStatusSucceeded {
		t.Errorf("Status = %s, want succeeded", rec.Status)
	}
	if rec.Inputs["body"] != "こんにちは。さようなら。" {
		t.Errorf("Inputs = %v", rec.Inputs)
	}
	if got := usage(t, repos, "rewrite"); got != 1 {
		t.Errorf("usage_count = %d, want 1", got)
	}
}

func TestRun_DefaultModeIsMock(t *testing.T) {
	repos := newRepos(t)
	backend := &testutil.StubBackend{BackendName: "gemini", Model: "gemini-2.5-flash", Text: "live"}
	svc := newService(repos, nil, backend)

	resp, err := svc.Run(context.Background(), "tiktok-5picks", &Request{
		Inputs: map[string]interface{}{"source": "一。二。三。"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Output.Kind != model.OutputKindItems || len(resp.Output.Items) != 5 {
		t.Errorf("Output = %+v, want 5 items", resp.Output)
	}
	if n := len(backend.Calls()); n != 0 {
		t.Errorf("backend called %d times in mock mode", n)
	}
}

func TestRun_NotFound(t *testing.T) {
	repos := newRepos(t)
	svc := newService(repos, nil)

	for _, slug := range []string{"no-such-tool", "draft-tool"} {
		_, err := svc.Run(context.Background(), slug, &Request{Inputs: map[string]interface{}{"body": "x"}})
		assertCode(t, err, types.CodeNotFound)
	}
}

func TestRun_ValidationShortCircuits(t *testing.T) {
	repos := newRepos(t)
	backend := &testutil.StubBackend{BackendName: "gemini", Model: "gemini-2.5-flash", Text: "live"}
	svc := newService(repos, nil, backend)

	_, err := svc.Run(context.Background(), "rewrite", &Request{
		Mode:   "gemini",
		Inputs: map[string]interface{}{"body": "   ", "tone": "丁寧"},
	})
	te := assertCode(t, err, types.CodeValidation)
	if _, ok := te.Fields["body"]; !ok {
		t.Errorf("Fields = %v, want body", te.Fields)
	}

	if got := usage(t, repos, "rewrite"); got != 0 {
		t.Errorf("usage_count = %d, want 0", got)
	}
	runs, _ := repos.Run.ListByTool(context.Background(), "rewrite", 10)
	if len(runs) != 0 {
		t.Errorf("runs = %d, want 0", len(runs))
	}
	if n := len(backend.Calls()); n != 0 {
		t.Errorf("backend called %d times", n)
	}
}

func TestRun_ModeModelAndCredentialGate(t *testing.T) {
	backend := &testutil.StubBackend{BackendName: "gemini", Model: "gemini-2.5-flash", Text: "live"}

	tests := []struct {
		name      string
		req       *Request
		wantField string
	}{
		{"unknown mode", &Request{Mode: "claude"}, "mode"},
		{"model outside allow-list", &Request{Mode: "gemini", Model: "gemini-1.0-ultra"}, "model"},
		{"short key", &Request{Mode: "gemini", UserAPIKey: "short"}, "userApiKey"},
		{"bad characters", &Request{Mode: "gemini", UserAPIKey: strings.Repeat("a", 30) + "!"}, "userApiKey"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repos := newRepos(t)
			svc := newService(repos, nil, backend)
			tt.req.Inputs = map[string]interface{}{"body": "本文です"}

			_, err := svc.Run(context.Background(), "rewrite", tt.req)
			te := assertCode(t, err, types.CodeValidation)
			if _, ok := te.Fields[tt.wantField]; !ok {
				t.Errorf("Fields = %v, want %s", te.Fields, tt.wantField)
			}
			if got := usage(t, repos, "rewrite"); got != 0 {
				t.Errorf("usage_count = %d, want 0", got)
			}
		})
	}
	if n := len(backend.Calls()); n != 0 {
		t.Errorf("backend called %d times before gate", n)
	}
}

func TestRun_LiveSuccess(t *testing.T) {
	repos := newRepos(t)
	backend := &testutil.StubBackend{
		BackendName: "gemini",
		Model:       "gemini-2.5-flash",
		Text:        `[{"title":"一","body":"a"},{"title":"二","body":"b"}]`,
	}
	svc := newService(repos, nil, backend)

	resp, err := svc.Run(context.Background(), "tiktok-5picks", &Request{
		Mode:       "gemini",
		Model:      "gemini-2.5-pro",
		UserAPIKey: validKey,
		Inputs:     map[string]interface{}{"source": "元の文章"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Fallback {
		t.Error("Fallback = true on live success")
	}
	if len(resp.Output.Items) != 2 {
		t.Errorf("Items = %+v, want 2 parsed items", resp.Output.Items)
	}

	calls := backend.Calls()
	if len(calls) != 1 {
		t.Fatalf("backend calls = %d, want 1", len(calls))
	}
	if calls[0].APIKey != validKey || calls[0].Model != "gemini-2.5-pro" {
		t.Errorf("request = %+v", calls[0])
	}
	if !strings.Contains(calls[0].Prompt, "元の文章") || strings.Contains(calls[0].Prompt, "%s_source%") {
		t.Errorf("prompt not interpolated: %q", calls[0].Prompt)
	}

	rec, _ := svc.Get(context.Background(), resp.RunID)
	if rec.Status != model.RunStatusSucceeded || rec.Model != "gemini-2.5-pro" || rec.FallbackUsed {
		t.Errorf("run = %+v", rec)
	}
}

func TestRun_LiveFailureFallsBack(t *testing.T) {
	repos := newRepos(t)
	backend := &testutil.StubBackend{BackendName: "gemini", Model: "gemini-2.5-flash", Err: errors.New("quota exceeded")}
	svc := newService(repos, nil, backend)

	resp, err := svc.Run(context.Background(), "rewrite", &Request{
		Mode:   "gemini",
		Inputs: map[string]interface{}{"body": "走ります"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v, live failure must not surface", err)
	}
	if !resp.Fallback {
		t.Error("Fallback = false, want true")
	}
	if resp.Output.Text != "走りございます" {
		t.Errorf("Output = %+v, want mock rewrite", resp.Output)
	}

	rec, _ := svc.Get(context.Background(), resp.RunID)
	if rec.Status != model.RunStatusFailed || !rec.FallbackUsed {
		t.Errorf("run status = %s fallback = %v, want failed/true", rec.Status, rec.FallbackUsed)
	}
	if got := usage(t, repos, "rewrite"); got != 1 {
		t.Errorf("usage_count = %d, want 1", got)
	}
}

func TestRun_Warnings(t *testing.T) {
	repos := newRepos(t)
	svc := newService(repos, nil)

	resp, err := svc.Run(context.Background(), "rewrite", &Request{
		Inputs: map[string]interface{}{"body": strings.Repeat("長", 2001)},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Warnings["body"] == "" {
		t.Errorf("Warnings = %v, want body warning", resp.Warnings)
	}
}

type recorder struct {
	mu    sync.Mutex
	slugs []string
}

func (r *recorder) RecordRun(ctx context.Context, anonID, toolSlug string, inputs map[string]interface{}, output model.Output) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slugs = append(r.slugs, anonID+"/"+toolSlug)
	return nil
}

func TestRun_RecordsHistoryForAnonClient(t *testing.T) {
	repos := newRepos(t)
	rec := &recorder{}
	svc := newService(repos, rec)

	ctx := context.Background()
	if _, err := svc.Run(ctx, "rewrite", &Request{AnonID: "anon-1", Inputs: map[string]interface{}{"body": "x"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Run(ctx, "rewrite", &Request{Inputs: map[string]interface{}{"body": "x"}}); err != nil {
		t.Fatal(err)
	}
	if len(rec.slugs) != 1 || rec.slugs[0] != "anon-1/rewrite" {
		t.Errorf("recorded = %v", rec.slugs)
	}
}

type failingRunRepo struct {
	repository.RunRepository
}

func (failingRunRepo) Create(ctx context.Context, run *model.Run) error {
	return errors.New("disk full")
}

func TestRun_PersistenceFailureIsInternal(t *testing.T) {
	repos := newRepos(t)
	repos.Run = failingRunRepo{repos.Run}
	svc := newService(repos, nil)

	_, err := svc.Run(context.Background(), "rewrite", &Request{Inputs: map[string]interface{}{"body": "x"}})
	assertCode(t, err, types.CodeInternal)
	if got := usage(t, repos, "rewrite"); got != 0 {
		t.Errorf("usage_count = %d, want 0", got)
	}
}

// 并发运行后 usage_count 必须精确等于运行次数
func TestRun_ConcurrentUsageIsExact(t *testing.T) {
	defer goleak.VerifyNone(t)

	repos := newRepos(t)
	backend := &testutil.StubBackend{BackendName: "gemini", Model: "gemini-2.5-flash", Err: errors.New("unavailable")}
	svc := newService(repos, nil, backend)

	const n = 24
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mode := "mock"
			if i%2 == 0 {
				mode = "gemini"
			}
			_, err := svc.Run(context.Background(), "rewrite", &Request{
				Mode:   mode,
				Inputs: map[string]interface{}{"body": "並行です"},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}
	if got := usage(t, repos, "rewrite"); got != n {
		t.Errorf("usage_count = %d, want %d (lost increments)", got, n)
	}
	runs, _ := repos.Run.ListByTool(context.Background(), "rewrite", 100)
	if len(runs) != n {
		t.Errorf("runs = %d, want %d", len(runs), n)
	}
}

func TestListByTool(t *testing.T) {
	repos := newRepos(t)
	svc := newService(repos, nil)
	ctx := context.Background()

	var last string
	for i := 0; i < 3; i++ {
		resp, err := svc.Run(ctx, "rewrite", &Request{Inputs: map[string]interface{}{"body": "本文"}})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		last = resp.RunID
	}

	runs, err := svc.ListByTool(ctx, "rewrite", 2)
	if err != nil {
		t.Fatalf("ListByTool() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != last {
		t.Errorf("ListByTool() = %d runs, first %v; want 2 newest first", len(runs), runs)
	}

	_, err = svc.ListByTool(ctx, "draft-tool", 10)
	assertCode(t, err, types.CodeNotFound)
}
