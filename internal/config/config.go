package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App        AppConfig
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	AI         AIConfig
	Storage    StorageConfig
	Admin      AdminConfig
	Preference PreferenceConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// IsDevelopment 是否开发环境
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string // postgres, sqlite, file
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	Path         string // sqlite 文件路径
	DataFile     string // file 驱动使用的 JSON 数据文件
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AIConfig AI配置
type AIConfig struct {
	DefaultMode string
	Gemini      GeminiConfig
	OpenAI      OpenAIConfig
}

// GeminiConfig Gemini配置
type GeminiConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	AllowedModels []string
	Timeout       int
}

// OpenAIConfig OpenAI配置
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// StorageConfig 上传文件存储配置
type StorageConfig struct {
	Type      string // local, minio
	BasePath  string
	URLPrefix string
	PublicDir string // 以 /images 对外提供的静态目录
	MinIO     MinIOConfig
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	URLPrefix string
}

// AdminConfig 管理后台配置
type AdminConfig struct {
	JWTSecret      string
	PasswordHash   string
	TokenTTL       int // 分钟
	ProtectedSlugs []string
}

// AuthEnabled 是否启用管理员认证
func (c *AdminConfig) AuthEnabled() bool {
	return strings.TrimSpace(c.JWTSecret) != ""
}

// PreferenceConfig 收藏/历史存储配置
type PreferenceConfig struct {
	Namespace    string
	HistoryLimit int
	TTL          int // 小时，0 表示不过期
}

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("AI_TOOLBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("ai.gemini.apiKey", "AI_TOOLBOX_AI_GEMINI_APIKEY", "GEMINI_API_KEY")
	_ = v.BindEnv("ai.openai.apiKey", "AI_TOOLBOX_AI_OPENAI_APIKEY", "OPENAI_API_KEY")
	_ = v.BindEnv("admin.jwtSecret", "AI_TOOLBOX_ADMIN_JWTSECRET", "JWT_SECRET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "ai-toolbox")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", false)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)

	// Database
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "ai_toolbox")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "./data/ai-toolbox.db")
	v.SetDefault("database.dataFile", "./data/tools.json")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// AI
	v.SetDefault("ai.defaultMode", "mock")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.allowedModels", []string{"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite"})
	v.SetDefault("ai.gemini.timeout", 60)
	v.SetDefault("ai.openai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.timeout", 60)

	// Storage
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.basePath", "./public/images/uploads")
	v.SetDefault("storage.urlPrefix", "/images/uploads")
	v.SetDefault("storage.publicDir", "./public/images")
	v.SetDefault("storage.minio.bucket", "ai-toolbox")
	v.SetDefault("storage.minio.region", "us-east-1")

	// Admin
	v.SetDefault("admin.tokenTTL", 720)
	v.SetDefault("admin.protectedSlugs", []string{"rewrite"})

	// Preference
	v.SetDefault("preference.namespace", "mvp")
	v.SetDefault("preference.historyLimit", 50)
	v.SetDefault("preference.ttl", 0)
}
