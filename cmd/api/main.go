package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-modifier/internal/api"
	"recipe-modifier/internal/core/quota"
	"recipe-modifier/internal/infrastructure/config"
	"recipe-modifier/internal/infrastructure/monitoring"
	"recipe-modifier/internal/infrastructure/store"
	"recipe-modifier/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含選用的 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(common.LogOptions{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Service: cfg.App.Name,
	}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("store_driver", cfg.Store.Driver),
		zap.Int("daily_limit", cfg.Quota.DailyLimit),
		zap.String("timezone", cfg.Quota.Timezone),
	)

	// 初始化額度儲存
	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	quotaStore, err := store.New(initCtx, cfg)
	cancelInit()
	if err != nil {
		common.LogFatal("Failed to initialize quota store", zap.Error(err))
	}
	defer quotaStore.Close()

	loc, err := cfg.Quota.Location()
	if err != nil {
		common.LogFatal("Invalid quota timezone", zap.Error(err))
	}

	metrics := monitoring.NewMetrics("recipe_modifier")

	tracker, err := quota.NewTracker(quotaStore, cfg.Quota.DailyLimit,
		quota.WithLocation(loc),
		quota.WithMetrics(metrics),
		quota.WithRetryPolicy(quota.RetryPolicy{
			MaxRetries:      cfg.Quota.MaxRetries,
			InitialInterval: cfg.Quota.InitialBackoff,
			MaxInterval:     cfg.Quota.MaxBackoff,
			AttemptTimeout:  cfg.Quota.StoreTimeout,
		}),
	)
	if err != nil {
		common.LogFatal("Failed to initialize quota tracker", zap.Error(err))
	}

	// 設置路由
	router, err := api.SetupRouter(cfg, tracker, metrics)
	if err != nil {
		common.LogFatal("Failed to setup router", zap.Error(err))
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
