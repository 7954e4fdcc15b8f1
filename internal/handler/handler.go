// Package handler HTTP 处理器
package handler

import (
	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Tool       *ToolHandler
	Run        *RunHandler
	Admin      *AdminHandler
	Auth       *AuthHandler
	File       *FileHandler
	Credential *CredentialHandler
	Preference *PreferenceHandler
	System     *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, log *zap.Logger) *Handlers {
	b := base{log: log, verbose: svc.Config.App.IsDevelopment()}
	return &Handlers{
		Tool:       NewToolHandler(svc, b),
		Run:        NewRunHandler(svc, b),
		Admin:      NewAdminHandler(svc, b),
		Auth:       NewAuthHandler(svc, b),
		File:       NewFileHandler(svc, b),
		Credential: NewCredentialHandler(svc, b),
		Preference: NewPreferenceHandler(svc, b),
		System:     NewSystemHandler(svc, b),
	}
}
