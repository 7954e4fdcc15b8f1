// Package service 组装业务服务
package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/config"
	"github.com/ashwinyue/ai-toolbox/internal/repository"
	"github.com/ashwinyue/ai-toolbox/internal/service/auth"
	"github.com/ashwinyue/ai-toolbox/internal/service/credential"
	"github.com/ashwinyue/ai-toolbox/internal/service/file"
	"github.com/ashwinyue/ai-toolbox/internal/service/generator"
	"github.com/ashwinyue/ai-toolbox/internal/service/preference"
	"github.com/ashwinyue/ai-toolbox/internal/service/run"
	"github.com/ashwinyue/ai-toolbox/internal/service/tool"
)

// Services 服务集合
type Services struct {
	Tool       *tool.Service
	Run        *run.Service
	Credential *credential.Service
	Preference *preference.Service
	File       *file.Service
	Auth       *auth.Service

	// 配置
	Config *config.Config
	Repo   *repository.Repositories
}

// Deps 外部资源，由入口创建后注入
type Deps struct {
	Repo    *repository.Repositories
	KV      preference.KV
	Storage file.Storage
	// Backends 为空时按配置创建 Gemini 与 OpenAI 后端
	Backends []generator.Backend
}

// NewServices 创建所有服务
func NewServices(cfg *config.Config, deps Deps, log *zap.Logger) *Services {
	backends := deps.Backends
	if len(backends) == 0 {
		backends = newBackends(cfg)
	}

	prefs := preference.NewService(deps.KV, preference.Config{
		Namespace:    cfg.Preference.Namespace,
		HistoryLimit: cfg.Preference.HistoryLimit,
		TTL:          time.Duration(cfg.Preference.TTL) * time.Hour,
	}, log.Named("preference"))

	runSvc := run.NewService(deps.Repo, backends, run.Config{
		DefaultMode: cfg.AI.DefaultMode,
		AllowedModels: map[string][]string{
			"gemini": cfg.AI.Gemini.AllowedModels,
		},
	}, prefs, log.Named("run"))

	fileSvc := file.NewService(deps.Storage, log.Named("file"))

	return &Services{
		Tool: tool.NewService(deps.Repo, prefs, tool.Config{
			ProtectedSlugs: cfg.Admin.ProtectedSlugs,
		}, log.Named("tool")).WithImageRemover(fileSvc),
		Run:        runSvc,
		Credential: credential.NewService(backendByName(backends, "gemini"), log.Named("credential")),
		Preference: prefs,
		File:       fileSvc,
		Auth:       auth.NewService(cfg.Admin),

		Config: cfg,
		Repo:   deps.Repo,
	}
}

// newBackends 创建外部生成后端，缺少服务端密钥时仍可使用调用方密钥
func newBackends(cfg *config.Config) []generator.Backend {
	return []generator.Backend{
		generator.NewGemini(cfg.AI.Gemini),
		generator.NewOpenAI(cfg.AI.OpenAI),
	}
}

func backendByName(backends []generator.Backend, name string) generator.Backend {
	for _, b := range backends {
		if b.Name() == name {
			return b
		}
	}
	if len(backends) > 0 {
		return backends[0]
	}
	return nil
}
