package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/config"
	"github.com/BienNg/eduinsight-sub000/internal/api/handler"
	"github.com/BienNg/eduinsight-sub000/internal/api/router"
	"github.com/BienNg/eduinsight-sub000/internal/repository"
	"github.com/BienNg/eduinsight-sub000/internal/service"
	"github.com/BienNg/eduinsight-sub000/pkg/jwt"
	applogger "github.com/BienNg/eduinsight-sub000/pkg/logger"
	"github.com/BienNg/eduinsight-sub000/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.ValidateServer()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 打开记录存储
	store, err := repository.OpenStore(cfg, logger)
	if err != nil {
		logger.Fatal("打开存储失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	deps := service.Deps{Locker: service.NewNoopLocker()}
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，导入锁、Token 黑名单与限流将不可用", zap.Error(err))
			rdb = nil
		} else {
			deps.Locker = service.NewRedisLocker(rdb, cfg.Import.LockTTL, logger.Named("lock"))
			deps.Blacklist = rdb
		}
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(store)
	svc := service.NewService(cfg, repo, jwtMgr, deps, logger)
	h := handler.NewHandler(svc, cfg.Import.MaxUploadBytes)

	// 6.1 启动导入队列
	queueCtx, stopQueue := context.WithCancel(context.Background())
	defer stopQueue()
	if err := svc.Import.Start(queueCtx); err != nil {
		logger.Fatal("启动导入队列失败", zap.Error(err))
	}

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	// WriteTimeout 需覆盖导入任务长轮询
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止导入队列；进行中的任务会在当前写入完成后退出
	stopQueue()

	if err := store.Close(); err != nil {
		logger.Error("关闭存储失败", zap.Error(err))
	}

	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
