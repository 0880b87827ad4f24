package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Images      ImagesConfig     `mapstructure:"images"`
	Fetch       FetchConfig      `mapstructure:"fetch"`
	Generation  GenerationConfig `mapstructure:"generation"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Queue       QueueConfig      `mapstructure:"queue"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
	// DataDir 應用程式私有文件目錄
	DataDir string `mapstructure:"data_dir"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// StorageConfig 食譜持久化設定
type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	Dir           string `mapstructure:"dir"`
	Key           string `mapstructure:"key"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	SQLitePath    string `mapstructure:"sqlite_path"`
}

// ImagesConfig 圖片快取目錄設定
type ImagesConfig struct {
	Dir             string        `mapstructure:"dir"`
	MaxSizeBytes    int64         `mapstructure:"max_size_bytes"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
}

// FetchConfig 網頁抓取設定
type FetchConfig struct {
	UserAgent    string        `mapstructure:"user_agent"`
	UseProxy     bool          `mapstructure:"use_proxy"`
	CORSProxy    string        `mapstructure:"cors_proxy"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// GenerationConfig 文字生成服務設定
type GenerationConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	FallbackModels []string      `mapstructure:"fallback_models"`
	ModelConfigURL string        `mapstructure:"model_config_url"`
	Temperature    float64       `mapstructure:"temperature"`
	Seed           int           `mapstructure:"seed"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	ResponseFormat bool          `mapstructure:"response_format"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Configured 端點與模型都已設定
func (g GenerationConfig) Configured() bool {
	return strings.TrimSpace(g.Endpoint) != "" && strings.TrimSpace(g.Model) != ""
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// QueueConfig 擷取隊列設定
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時僅使用環境變數與預設值
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	_ = v.BindEnv("generation.endpoint", "AI_MODEL_ENDPOINT")
	_ = v.BindEnv("generation.api_key", "AI_MODEL_API_KEY")
	_ = v.BindEnv("generation.model", "AI_MODEL_NAME")
	_ = v.BindEnv("generation.fallback_models", "AI_MODEL_FALLBACKS")
	_ = v.BindEnv("generation.model_config_url", "AI_MODEL_CONFIG_URL")
	_ = v.BindEnv("storage.driver", "STORAGE_DRIVER")
	_ = v.BindEnv("storage.redis_addr", "REDIS_ADDR")
	_ = v.BindEnv("cache.enabled", "CACHE_ENABLED")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("dedup_window", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Generation.FallbackModels = splitList(config.Generation.FallbackModels)
	config.applyDerivedPaths()

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// splitList 允許以逗號分隔的環境變數提供清單
func splitList(in []string) []string {
	out := []string{}
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// applyDerivedPaths 未指定的路徑放在私有文件目錄下
func (c *Config) applyDerivedPaths() {
	if c.Storage.Dir == "" {
		c.Storage.Dir = c.App.DataDir
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = filepath.Join(c.App.DataDir, "recipes.db")
	}
	if c.Images.Dir == "" {
		c.Images.Dir = filepath.Join(c.App.DataDir, "recipe-images")
	}
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-keeper")
	v.SetDefault("app.data_dir", "data")
	v.SetDefault("log_level", "info")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.idle_timeout", "120s")

	// 持久化設定
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.key", "SavedRecipes")
	v.SetDefault("storage.redis_db", 0)

	// 圖片設定
	v.SetDefault("images.max_size_bytes", 10*1024*1024) // 10MB
	v.SetDefault("images.download_timeout", "30s")

	// 網頁抓取設定
	v.SetDefault("fetch.user_agent", "Mozilla/5.0")
	v.SetDefault("fetch.use_proxy", false)
	v.SetDefault("fetch.cors_proxy", "https://corsproxy.io/?")
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.max_body_bytes", 5*1024*1024)

	// 生成服務設定
	v.SetDefault("generation.endpoint", "")
	v.SetDefault("generation.model", "")
	v.SetDefault("generation.temperature", 0.1)
	v.SetDefault("generation.seed", 1997)
	v.SetDefault("generation.max_tokens", 4000)
	v.SetDefault("generation.response_format", true)
	v.SetDefault("generation.timeout", "120s")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 200)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// 隊列設定
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.max_size", 20)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 30)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "2s")
}

// validateConfig 驗證設定
//
// 生成服務未設定不是啟動錯誤，會在每次擷取時以可處理的錯誤回報。
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.Storage.Driver {
	case "file", "redis", "sqlite":
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}
	if strings.TrimSpace(config.Storage.Key) == "" {
		return fmt.Errorf("storage key is required")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}

	return nil
}
