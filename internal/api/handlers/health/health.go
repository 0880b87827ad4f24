package health

import (
	"net/http"
	"runtime"
	"time"

	"recipe-keeper/internal/core/ai/cache"
	"recipe-keeper/internal/core/ai/queue"
	"recipe-keeper/internal/infrastructure/config"
	"recipe-keeper/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status               string                 `json:"status"`
	Timestamp            time.Time              `json:"timestamp"`
	Version              string                 `json:"version"`
	Recipes              int                    `json:"recipes"`
	GenerationConfigured bool                   `json:"generation_configured"`
	Runtime              map[string]interface{} `json:"runtime"`
	Queue                *queue.Status          `json:"queue,omitempty"`
	Cache                *cache.Stats           `json:"cache,omitempty"`
}

// Dependencies 健康檢查需要的狀態來源
type Dependencies struct {
	RecipeCount          func() int
	GenerationConfigured func() bool
	QueueStatus          func() queue.Status
	CacheStats           func() cache.Stats
}

// Handler 健康檢查處理器
type Handler struct {
	config *config.Config
	deps   Dependencies
}

// NewHandler 創建健康檢查處理器
func NewHandler(cfg *config.Config, deps Dependencies) *Handler {
	return &Handler{config: cfg, deps: deps}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.config.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if h.deps.RecipeCount != nil {
		response.Recipes = h.deps.RecipeCount()
	}
	if h.deps.GenerationConfigured != nil {
		response.GenerationConfigured = h.deps.GenerationConfigured()
	}
	if h.deps.QueueStatus != nil {
		status := h.deps.QueueStatus()
		response.Queue = &status
	}
	if h.deps.CacheStats != nil && h.config.Cache.Enabled {
		stats := h.deps.CacheStats()
		response.Cache = &stats
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器；生成服務未設定時仍可管理食譜，只在回應中標示
func (h *Handler) ReadinessCheck(c *gin.Context) {
	configured := false
	if h.deps.GenerationConfigured != nil {
		configured = h.deps.GenerationConfigured()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":                "ready",
		"generation_configured": configured,
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
