package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-keeper/internal/api"
	"recipe-keeper/internal/core/ai/cache"
	"recipe-keeper/internal/core/ai/generation"
	"recipe-keeper/internal/core/ai/queue"
	"recipe-keeper/internal/core/extractor"
	"recipe-keeper/internal/core/image"
	"recipe-keeper/internal/core/store"
	"recipe-keeper/internal/infrastructure/blobstore"
	"recipe-keeper/internal/infrastructure/config"
	"recipe-keeper/internal/pkg/common"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	// 載入設定（.env 由 config 一併處理）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("generation_endpoint", cfg.Generation.Endpoint),
		zap.String("generation_model", cfg.Generation.Model),
		zap.String("generation_api_key", cfg.Generation.APIKey),
	)

	ctx := context.Background()

	// 持久化儲存
	blobs, err := blobstore.Open(ctx, cfg.Storage)
	if err != nil {
		common.LogFatal("Failed to open blob store", zap.Error(err))
	}
	defer blobs.Close()

	// 圖片快取目錄
	images, err := image.NewCache(afero.NewOsFs(), cfg.Images, cfg.Fetch.UserAgent)
	if err != nil {
		common.LogFatal("Failed to initialize image cache", zap.Error(err))
	}

	// 食譜 store，啟動時遷移舊資料
	recipes := store.New(blobs, cfg.Storage.Key, images)
	wroteBack, err := recipes.Load(ctx)
	if err != nil {
		common.LogFatal("Failed to load recipes", zap.Error(err))
	}
	common.LogInfo("Recipes loaded",
		zap.Int("count", recipes.Count()),
		zap.Bool("migrated", wroteBack),
	)

	// 生成服務與緩存
	cacheManager := cache.NewManager(cfg.Cache)
	defer cacheManager.Close()

	generator := generation.NewClient(cfg.Generation, cacheManager)
	defer generator.Close()
	if cfg.Generation.ModelConfigURL != "" {
		refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := generator.RefreshModels(refreshCtx); err != nil {
			common.LogWarn("Using configured model list", zap.Error(err))
		}
		cancel()
	}
	if !generator.Configured() {
		common.LogWarn("Generation service is not configured, extraction requests will fail until it is")
	}

	// 擷取流程與隊列
	extractSvc := extractor.NewService(extractor.NewHTTPFetcher(cfg.Fetch), generator, images)
	jobs := queue.NewManager(cfg.Queue, extractSvc)
	jobs.Start()
	defer jobs.Close()

	router := api.SetupRouter(cfg, api.Services{
		Store:                recipes,
		Queue:                jobs,
		Cache:                cacheManager,
		GenerationConfigured: generator.Configured,
	})

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
			zap.Int("port", cfg.Server.Port),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}
