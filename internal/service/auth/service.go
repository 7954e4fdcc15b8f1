// Package auth 管理员登录与令牌校验
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ashwinyue/ai-toolbox/internal/config"
	"github.com/ashwinyue/ai-toolbox/internal/service/types"
)

const (
	// Subject 管理员令牌的 sub
	Subject = "admin"
	issuer  = "ai-toolbox"
)

// ErrInvalidToken 令牌无效或已过期
var ErrInvalidToken = errors.New("invalid or expired token")

// Service 认证服务
// 未配置 JWT 密钥时认证关闭，所有管理接口对外开放
type Service struct {
	secret       []byte
	passwordHash []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewService 创建认证服务
func NewService(cfg config.AdminConfig) *Service {
	ttl := time.Duration(cfg.TokenTTL) * time.Minute
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{
		secret:       []byte(strings.TrimSpace(cfg.JWTSecret)),
		passwordHash: []byte(strings.TrimSpace(cfg.PasswordHash)),
		ttl:          ttl,
		now:          time.Now,
	}
}

// Enabled 是否启用认证
func (s *Service) Enabled() bool {
	return len(s.secret) > 0
}

// LoginRequest 登录请求
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login 校验管理员密码并签发令牌
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if !s.Enabled() {
		return nil, types.Forbidden("管理者認証が無効です")
	}
	if req.Password == "" {
		return nil, types.FieldError("password", "必須項目です")
	}
	if len(s.passwordHash) == 0 ||
		bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)) != nil {
		return nil, types.Unauthorized("パスワードが正しくありません")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   Subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, types.Internal("failed to sign token", err)
	}
	return &LoginResponse{Token: token, ExpiresAt: expiresAt.UTC()}, nil
}

// ValidateToken 校验管理员令牌
func (s *Service) ValidateToken(tokenString string) error {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(issuer), jwt.WithSubject(Subject))
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// HashPassword 生成 bcrypt 哈希，供 admin.passwordHash 使用
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
