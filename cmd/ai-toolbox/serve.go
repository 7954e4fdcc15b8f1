package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/config"
	"github.com/ashwinyue/ai-toolbox/internal/handler"
	"github.com/ashwinyue/ai-toolbox/internal/router"
	"github.com/ashwinyue/ai-toolbox/internal/service"
	"github.com/ashwinyue/ai-toolbox/internal/service/callback"
	"github.com/ashwinyue/ai-toolbox/internal/service/file"
	"github.com/ashwinyue/ai-toolbox/internal/service/preference"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// 设置 Gin 模式
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, closeRepos, err := openRepositories(cfg, log)
	if err != nil {
		return err
	}
	defer closeRepos()

	kv, closeKV, err := newPreferenceKV(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeKV()

	storage, err := file.NewStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}

	callback.SetupGlobalCallbacks(log.Named("eino"), cfg.App.Debug)

	services := service.NewServices(cfg, service.Deps{
		Repo:    repos,
		KV:      kv,
		Storage: storage,
	}, log)
	if !services.Auth.Enabled() {
		log.Warn("admin.jwtSecret is empty, admin authentication is disabled")
	}

	handlers := handler.NewHandlers(services, log)
	r := router.SetupRouter(handlers, services.Auth, cfg, log)

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("mode", cfg.AI.DefaultMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

// newPreferenceKV Redis 启用时使用 Redis，否则使用进程内存储
func newPreferenceKV(ctx context.Context, cfg *config.Config, log *zap.Logger) (preference.KV, func(), error) {
	if !cfg.Redis.Enabled {
		log.Info("redis disabled, preferences are kept in memory")
		return preference.NewMemoryKV(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	log.Info("redis connected", zap.String("addr", cfg.Redis.GetAddr()))
	return preference.NewRedisKV(client), func() { _ = client.Close() }, nil
}
