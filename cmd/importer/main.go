// Command importer 在命令行批量导入课程表格，与 HTTP 服务共用同一套存储与导入队列。
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/config"
	"github.com/BienNg/eduinsight-sub000/internal/importer"
	"github.com/BienNg/eduinsight-sub000/internal/repository"
	"github.com/BienNg/eduinsight-sub000/internal/service"
	applogger "github.com/BienNg/eduinsight-sub000/pkg/logger"
	"github.com/BienNg/eduinsight-sub000/pkg/redis"
)

// errImportFailed 至少一个文件导入失败
var errImportFailed = errors.New("one or more files failed to import")

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	root := &cobra.Command{
		Use:           "importer",
		Short:         "Import course spreadsheets into the school store",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug|info|warn|error)")

	root.AddCommand(newImportCmd(&opts))
	root.AddCommand(newValidateCmd(&opts))
	return root
}

// env 命令运行所需的依赖
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	store  repository.RecordStore
	rdb    *redis.Client
}

func (e *env) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Error("关闭存储失败", zap.Error(err))
		}
	}
	if e.rdb != nil {
		e.rdb.Close()
	}
	e.logger.Sync()
}

// loadEnv 加载配置与日志；withStore 时同时打开存储与可选的 Redis
func loadEnv(opts *rootOptions, withStore bool) (*env, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	cfg.Log.Format = "console"

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, logger: logger}
	if !withStore {
		return e, nil
	}

	e.store, err = repository.OpenStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if cfg.Redis.Enabled {
		e.rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，导入将不加跨进程锁", zap.Error(err))
			e.rdb = nil
		}
	}
	return e, nil
}

// locker 有 Redis 时与 HTTP 服务共用同一把导入锁
func (e *env) locker() service.Locker {
	if e.rdb == nil {
		return service.NewNoopLocker()
	}
	return service.NewRedisLocker(e.rdb, e.cfg.Import.LockTTL, e.logger.Named("lock"))
}

func (e *env) pipeline(repo *repository.Repository) *importer.Pipeline {
	return importer.NewPipeline(repo, e.logger.Named("importer"), service.PipelineOptions(e.cfg))
}
