package middleware

import (
	"net/http"
	"strings"
	"time"

	"recipe-keeper/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// probeRoutes 健康檢查路由，只在 debug 級別記錄
var probeRoutes = map[string]bool{
	"/health": true,
	"/ready":  true,
	"/live":   true,
}

// Logger 請求日誌中間件
//
// 以路由樣板記錄請求，帶上食譜 ID 與錯誤代碼，方便依食譜或錯誤類型查詢。
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := requestFields(c, time.Since(start))
		status := c.Writer.Status()
		switch {
		case probeRoutes[c.FullPath()]:
			common.LogDebug("健康檢查", fields...)
		case status >= 500:
			common.LogError("伺服器錯誤", fields...)
		case status >= 400:
			common.LogWarn("用戶端錯誤", fields...)
		default:
			common.LogInfo("請求完成", fields...)
		}
	}
}

func requestFields(c *gin.Context, latency time.Duration) []zap.Field {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}

	fields := []zap.Field{
		zap.String("request_id", requestid.Get(c)),
		zap.String("method", c.Request.Method),
		zap.String("route", route),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("latency", latency),
		zap.String("ip", c.ClientIP()),
	}
	if id := c.Param("id"); id != "" {
		fields = append(fields, zap.String("recipe_id", id))
	}
	if strings.HasSuffix(route, "/extract") {
		fields = append(fields, zap.Int64("request_bytes", c.Request.ContentLength))
	}
	if size := c.Writer.Size(); size > 0 {
		fields = append(fields, zap.Int("response_bytes", size))
	}
	if last := c.Errors.Last(); last != nil {
		fields = append(fields,
			zap.String("error_code", common.CodeOf(last.Err)),
			zap.Error(last.Err),
		)
	}
	return fields
}

// Recovery 攔截 panic，回傳統一格式的 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				common.LogError("Panic recovered",
					zap.Any("error", err),
					zap.String("request_id", requestid.Get(c)),
					zap.String("method", c.Request.Method),
					zap.String("route", c.FullPath()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, common.ErrorResponse{
					Code:    common.ErrCodeInternalError,
					Message: "Internal server error",
				})
			}
		}()

		c.Next()
	}
}
