// Package router 注册 HTTP 路由
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/config"
	"github.com/ashwinyue/ai-toolbox/internal/handler"
	"github.com/ashwinyue/ai-toolbox/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, admin middleware.TokenValidator, cfg *config.Config, log *zap.Logger) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware(log))
	r.Use(middleware.AnonIDMiddleware())
	r.Use(middleware.LoggingMiddleware(log))
	r.Use(middleware.CORSMiddleware())

	// 本地上传的图片与占位图
	if cfg.Storage.PublicDir != "" {
		r.Static("/images", cfg.Storage.PublicDir)
	}

	// 健康检查
	r.GET("/health", h.System.Health)

	api := r.Group("/api")
	{
		// 工具目录
		tools := api.Group("/tools")
		{
			tools.GET("", h.Tool.ListTools)
			tools.GET("/:slug", h.Tool.GetTool)
			tools.POST("/:slug/runs", h.Run.CreateRun)
			tools.GET("/:slug/runs", h.Run.ListRuns)
		}

		api.GET("/runs/:id", h.Run.GetRun)
		api.POST("/validate-api-key", h.Credential.ValidateAPIKey)

		// 匿名客户端的收藏与历史
		me := api.Group("/me")
		{
			me.GET("/favorites", h.Preference.ListFavorites)
			me.POST("/favorites", h.Preference.AddFavorite)
			me.DELETE("/favorites/:slug", h.Preference.RemoveFavorite)
			me.GET("/history", h.Preference.ListHistory)
			me.POST("/history", h.Preference.AddHistory)
			me.DELETE("/history", h.Preference.ClearHistory)
		}

		// 管理接口
		api.POST("/admin/login", h.Auth.Login)
		adminGroup := api.Group("/admin")
		{
			requireAdmin := middleware.RequireAdmin(admin)
			adminGroup.POST("/tools", requireAdmin, h.Admin.CreateTool)
			// 受保护的工具无论是否登录都返回 403
			adminGroup.DELETE("/tools/:slug", h.Admin.RejectProtected, requireAdmin, h.Admin.DeleteTool)
			adminGroup.POST("/upload-image", requireAdmin, h.File.UploadImage)
		}
	}

	return r
}
