package api

import (
	"fmt"
	"time"

	"recipe-modifier/internal/api/handlers"
	"recipe-modifier/internal/api/handlers/health"
	"recipe-modifier/internal/api/middleware"
	"recipe-modifier/internal/core/diff"
	"recipe-modifier/internal/core/quota"
	"recipe-modifier/internal/infrastructure/config"
	"recipe-modifier/internal/infrastructure/monitoring"
	"recipe-modifier/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, tracker *quota.Tracker, metrics *monitoring.Metrics) (*gin.Engine, error) {
	if tracker == nil {
		return nil, fmt.Errorf("quota tracker is required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(metrics))

	// CORS 設置
	origins := cfg.Server.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", middleware.UserIDHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-Quota-Limit", "X-Quota-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.Server.MaxBodyBytes > 0 {
		router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	}
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	if cfg.Server.RequestTimeout > 0 {
		router.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}

	assembler := diff.NewAssembler(tracker, metrics)
	apiHandler := handlers.NewHandler(assembler, tracker)
	healthHandler := health.NewHandler(cfg.App.Version, tracker)

	// 健康檢查路由
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API 路由組
	api := router.Group("/api/v1")
	if cfg.DedupWindow > 0 {
		api.Use(middleware.Deduplication(middleware.NewDeduplicator(cfg.DedupWindow)))
	}
	{
		api.POST("/recipes/compare", apiHandler.HandleCompare)

		usageGroup := api.Group("/usage")
		{
			usageGroup.GET("", apiHandler.HandleGetUsage)
			usageGroup.POST("/consume", apiHandler.HandleConsume)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Int("daily_limit", tracker.Limit()),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}
