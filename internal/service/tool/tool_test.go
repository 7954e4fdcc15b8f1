package tool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/model"
	"github.com/ashwinyue/ai-toolbox/internal/repository"
	"github.com/ashwinyue/ai-toolbox/internal/service/types"
	"github.com/ashwinyue/ai-toolbox/internal/testutil"
)

type stubFavorites struct {
	slugs []string
	err   error
	asked string
}

func (f *stubFavorites) FavoriteSlugs(ctx context.Context, anonID string) ([]string, error) {
	f.asked = anonID
	return f.slugs, f.err
}

func newRepos(t *testing.T) (*repository.Repositories, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := repository.NewFileStore(filepath.Join(dir, "tools.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	repos := repository.NewFileRepositories(store)
	testutil.SeedTools(t, repos.Tool, testutil.SampleTools()...)
	return repos, dir
}

func newTestService(repos *repository.Repositories, fav FavoriteSource) *Service {
	return NewService(repos, fav, Config{ProtectedSlugs: []string{"rewrite"}}, zap.NewNop())
}

func codeOf(t *testing.T, err error) types.Code {
	t.Helper()
	var te *types.Error
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *types.Error", err)
	}
	return te.Code
}

func slugs(tools []*model.Tool) []string {
	out := make([]string, 0, len(tools))
	for _, tool := range tools {
		out = append(out, tool.Slug)
	}
	return out
}

func TestService_List(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()
	if err := repos.Tool.IncrementUsage(ctx, "tiktok-5picks"); err != nil {
		t.Fatal(err)
	}
	fav := &stubFavorites{slugs: []string{"rewrite", "draft-tool"}}
	svc := newTestService(repos, fav)

	tests := []struct {
		name string
		req  *ListRequest
		want []string
	}{
		{name: "popular excludes drafts", req: &ListRequest{}, want: []string{"tiktok-5picks", "rewrite"}},
		{name: "query matches name case-insensitively", req: &ListRequest{Query: "tiktok"}, want: []string{"tiktok-5picks"}},
		{name: "query matches description", req: &ListRequest{Query: "トーン"}, want: []string{"rewrite"}},
		{name: "query without match", req: &ListRequest{Query: "zzz"}, want: []string{}},
		{name: "explicit slugs", req: &ListRequest{Slugs: []string{"rewrite"}}, want: []string{"rewrite"}},
		{name: "favorites of anon client", req: &ListRequest{OnlyFavorites: true, AnonID: "anon-1"}, want: []string{"rewrite"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tools, err := svc.List(ctx, tt.req)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			got := slugs(tools)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("List() = %v, want %v", got, tt.want)
			}
		})
	}

	if fav.asked != "anon-1" {
		t.Errorf("favorites asked for %q, want anon-1", fav.asked)
	}
}

func TestService_List_FavoritesWithoutStore(t *testing.T) {
	repos, _ := newRepos(t)
	svc := newTestService(repos, nil)

	tools, err := svc.List(context.Background(), &ListRequest{OnlyFavorites: true})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tools) != 0 {
		t.Errorf("List() = %v, want empty", slugs(tools))
	}
}

func TestService_Get(t *testing.T) {
	repos, _ := newRepos(t)
	svc := newTestService(repos, nil)

	tool, err := svc.Get(context.Background(), "rewrite")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if tool.Name != "文章リライト" {
		t.Errorf("Name = %q", tool.Name)
	}

	for _, slug := range []string{"missing", "draft-tool"} {
		_, err := svc.Get(context.Background(), slug)
		if code := codeOf(t, err); code != types.CodeNotFound {
			t.Errorf("Get(%s) code = %s, want %s", slug, code, types.CodeNotFound)
		}
	}
}

func validCreate() *CreateRequest {
	return &CreateRequest{
		Slug:           "summary",
		Name:           "要約",
		Description:    "文章を要約します",
		PromptTemplate: "要約してください: %s_body%",
		FormSchema: []model.Field{
			{Name: "body", Label: "本文", Kind: model.FieldKindTextarea, Required: true},
		},
	}
}

func TestService_Create(t *testing.T) {
	repos, _ := newRepos(t)
	svc := newTestService(repos, nil)

	tool, err := svc.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if tool.Type != model.ToolTypeText || tool.Status != model.ToolStatusPublic {
		t.Errorf("defaults = %s/%s, want text/public", tool.Type, tool.Status)
	}
	if tool.ImageURL != model.PlaceholderImageURL {
		t.Errorf("ImageURL = %q, want placeholder", tool.ImageURL)
	}

	got, err := svc.Get(context.Background(), "summary")
	if err != nil {
		t.Fatalf("Get() after Create error = %v", err)
	}
	if got.UsageCount != 0 {
		t.Errorf("UsageCount = %d, want 0", got.UsageCount)
	}

	_, err = svc.Create(context.Background(), validCreate())
	var te *types.Error
	if !errors.As(err, &te) || te.Code != types.CodeValidation {
		t.Fatalf("duplicate Create() error = %v, want VALIDATION_ERROR", err)
	}
	if _, ok := te.Fields["slug"]; !ok {
		t.Errorf("Fields = %v, want slug", te.Fields)
	}
}

func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *CreateRequest)
		field  string
	}{
		{name: "missing slug", mutate: func(r *CreateRequest) { r.Slug = "" }, field: "slug"},
		{name: "uppercase slug", mutate: func(r *CreateRequest) { r.Slug = "Summary" }, field: "slug"},
		{name: "slug starting with hyphen", mutate: func(r *CreateRequest) { r.Slug = "-x" }, field: "slug"},
		{name: "missing name", mutate: func(r *CreateRequest) { r.Name = "  " }, field: "name"},
		{name: "missing description", mutate: func(r *CreateRequest) { r.Description = "" }, field: "description"},
		{name: "missing template", mutate: func(r *CreateRequest) { r.PromptTemplate = "" }, field: "prompt_template"},
		{name: "unknown type", mutate: func(r *CreateRequest) { r.Type = "audio" }, field: "type"},
		{name: "unknown status", mutate: func(r *CreateRequest) { r.Status = "archived" }, field: "status"},
		{name: "image outside images dir", mutate: func(r *CreateRequest) { r.ImageURL = "/etc/passwd" }, field: "image_url"},
		{name: "image without image extension", mutate: func(r *CreateRequest) { r.ImageURL = "/images/readme.txt" }, field: "image_url"},
		{name: "image with other scheme", mutate: func(r *CreateRequest) { r.ImageURL = "ftp://example.com/a.png" }, field: "image_url"},
		{name: "select without options", mutate: func(r *CreateRequest) {
			r.FormSchema = []model.Field{{Name: "tone", Label: "トーン", Kind: model.FieldKindSelect}}
		}, field: "form_schema_json[0].options"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repos, _ := newRepos(t)
			svc := newTestService(repos, nil)

			req := validCreate()
			tt.mutate(req)
			_, err := svc.Create(context.Background(), req)

			var te *types.Error
			if !errors.As(err, &te) || te.Code != types.CodeValidation {
				t.Fatalf("Create() error = %v, want VALIDATION_ERROR", err)
			}
			if _, ok := te.Fields[tt.field]; !ok {
				t.Errorf("Fields = %v, want key %q", te.Fields, tt.field)
			}

			n, _ := repos.Tool.Count(context.Background())
			if n != int64(len(testutil.SampleTools())) {
				t.Errorf("Count() = %d, tool must not be created", n)
			}
		})
	}
}

func TestValidImageURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{model.PlaceholderImageURL, true},
		{"/images/uploads/2024-01-01T00-00-00_cat.PNG", true},
		{"/images/icons/a.ico", true},
		{"https://cdn.example.com/a", true},
		{"http://example.com/a.jpg", true},
		{"https://", false},
		{"/images/", false},
		{"javascript:alert(1)", false},
		{"images/a.png", false},
	}
	for _, tt := range tests {
		if got := validImageURL(tt.url); got != tt.want {
			t.Errorf("validImageURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestService_Delete(t *testing.T) {
	repos, dir := newRepos(t)
	svc := newTestService(repos, nil)
	ctx := context.Background()

	rec := &model.Run{ToolSlug: "tiktok-5picks", Status: model.RunStatusRunning, Mode: "mock"}
	if err := repos.Run.Create(ctx, rec); err != nil {
		t.Fatal(err)
	}

	deleted, err := svc.Delete(ctx, "tiktok-5picks")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted.Slug != "tiktok-5picks" {
		t.Errorf("deleted = %s", deleted.Slug)
	}
	if _, err := repos.Run.GetByID(ctx, rec.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("run after delete: err = %v, want ErrNotFound", err)
	}

	backups, _ := filepath.Glob(filepath.Join(dir, "tools.backup.delete.*.json"))
	if len(backups) != 1 {
		t.Errorf("delete backups = %v, want exactly one", backups)
	} else if raw, err := os.ReadFile(backups[0]); err != nil || !strings.Contains(string(raw), "tiktok-5picks") {
		t.Errorf("backup does not hold the deleted tool")
	}

	_, err = svc.Delete(ctx, "tiktok-5picks")
	if code := codeOf(t, err); code != types.CodeNotFound {
		t.Errorf("second Delete() code = %s, want %s", code, types.CodeNotFound)
	}
}

type recordingRemover struct {
	removed []string
}

func (r *recordingRemover) RemoveImage(ctx context.Context, imageURL string) error {
	r.removed = append(r.removed, imageURL)
	return nil
}

func TestService_Delete_RemovesUnsharedImage(t *testing.T) {
	repos, _ := newRepos(t)
	remover := &recordingRemover{}
	svc := newTestService(repos, nil).WithImageRemover(remover)
	ctx := context.Background()

	for slug, url := range map[string]string{
		"img-a": "/images/uploads/shared.png",
		"img-b": "/images/uploads/shared.png",
		"img-c": "/images/uploads/own.png",
	} {
		tool := testutil.DraftTool()
		tool.Slug = slug
		tool.ImageURL = url
		if err := repos.Tool.Create(ctx, tool); err != nil {
			t.Fatal(err)
		}
	}

	steps := []struct {
		slug string
		want []string
	}{
		{"img-c", []string{"/images/uploads/own.png"}},
		{"img-a", []string{"/images/uploads/own.png"}},
		{"img-b", []string{"/images/uploads/own.png", "/images/uploads/shared.png"}},
		{"tiktok-5picks", []string{"/images/uploads/own.png", "/images/uploads/shared.png"}},
	}
	for _, step := range steps {
		if _, err := svc.Delete(ctx, step.slug); err != nil {
			t.Fatalf("Delete(%s) error = %v", step.slug, err)
		}
		if strings.Join(remover.removed, ",") != strings.Join(step.want, ",") {
			t.Errorf("after Delete(%s) removed = %v, want %v", step.slug, remover.removed, step.want)
		}
	}
}

func TestService_Delete_Rejections(t *testing.T) {
	repos, _ := newRepos(t)
	svc := newTestService(repos, nil)

	tests := []struct {
		slug string
		want types.Code
	}{
		{"rewrite", types.CodeForbidden},
		{"", types.CodeValidation},
		{"../etc", types.CodeValidation},
	}
	for _, tt := range tests {
		_, err := svc.Delete(context.Background(), tt.slug)
		if code := codeOf(t, err); code != tt.want {
			t.Errorf("Delete(%q) code = %s, want %s", tt.slug, code, tt.want)
		}
	}

	if _, err := repos.Tool.GetBySlug(context.Background(), "rewrite"); err != nil {
		t.Errorf("protected tool missing after rejected delete: %v", err)
	}
}
