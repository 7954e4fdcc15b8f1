package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ashwinyue/ai-toolbox/internal/config"
	"github.com/ashwinyue/ai-toolbox/internal/database"
	"github.com/ashwinyue/ai-toolbox/internal/logger"
	"github.com/ashwinyue/ai-toolbox/internal/repository"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "ai-toolbox",
	Short:         "AI tools catalog and run service",
	SilenceUsage:  true,
	SilenceErrors: true,
	// 不带子命令时启动服务
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $CONFIG_PATH or ./configs/config.yaml)")
	rootCmd.AddCommand(serveCmd, seedCmd, hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig 加载 .env 与配置文件并创建日志器
func loadConfig() (*config.Config, *zap.Logger, error) {
	// .env 可选
	_ = godotenv.Load()

	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		if _, err := os.Stat("./configs/config.yaml"); err == nil {
			path = "./configs/config.yaml"
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// openRepositories 按数据库驱动创建仓库，返回的函数用于释放连接
func openRepositories(cfg *config.Config, log *zap.Logger) (*repository.Repositories, func(), error) {
	if cfg.Database.Driver == "file" {
		store, err := repository.NewFileStore(cfg.Database.DataFile)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using file store", zap.String("path", cfg.Database.DataFile))
		return repository.NewFileRepositories(store), func() {}, nil
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info("database connected", zap.String("driver", cfg.Database.Driver))
	return repository.NewRepositories(db.DB), func() {
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}, nil
}
