package api

import (
	"context"
	"time"

	"recipe-keeper/internal/api/handlers/health"
	recipeHandler "recipe-keeper/internal/api/handlers/recipe"
	"recipe-keeper/internal/api/middleware"
	"recipe-keeper/internal/core/ai/cache"
	"recipe-keeper/internal/core/ai/queue"
	"recipe-keeper/internal/infrastructure/config"
	"recipe-keeper/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 180 * time.Second
	// 請求體大小限制 (10MB)
	maxBodySize = 10 << 20
)

// Services 路由需要的服務
type Services struct {
	Store                recipeHandler.Store
	Queue                *queue.Manager
	Cache                *cache.CacheManager
	GenerationConfigured func() bool
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
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
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 請求超時
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg, health.Dependencies{
		RecipeCount:          svc.Store.Count,
		GenerationConfigured: svc.GenerationConfigured,
		QueueStatus:          svc.Queue.GetQueueStatus,
		CacheStats:           svc.Cache.GetStats,
	})
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		h := recipeHandler.NewHandler(svc.Store, svc.Queue, cfg.App.Debug)

		recipes := api.Group("/recipes")
		{
			recipes.GET("", h.List)
			recipes.POST("", h.Create)
			recipes.GET("/:id", h.Get)
			recipes.PUT("/:id", h.Replace)
			recipes.DELETE("/:id", h.Delete)

			// 擷取會呼叫外部服務，額外限流與去重
			extract := []gin.HandlerFunc{middleware.Deduplication(cfg.DedupWindow)}
			if cfg.RateLimit.Enabled {
				extract = append(extract, middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
			}
			extract = append(extract, h.Extract)
			recipes.POST("/extract", extract...)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Int("queue_workers", cfg.Queue.Workers),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router
}
