// Package blobstore 提供以字串為鍵的持久化區塊儲存
//
// 食譜庫只使用一個鍵存放整份 JSON 陣列，因此各後端都只需要整值讀寫。
package blobstore

import (
	"context"
	"errors"
	"fmt"

	"recipe-keeper/internal/infrastructure/config"
)

// Store 持久化區塊儲存介面
type Store interface {
	// Get 讀取鍵值，鍵不存在時 ok 為 false 且不回傳錯誤
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set 覆寫鍵值
	Set(ctx context.Context, key, value string) error
	// Remove 刪除鍵，鍵不存在不視為錯誤
	Remove(ctx context.Context, key string) error
	// Close 釋放底層資源
	Close() error
}

// 支援的後端
const (
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// ErrUnknownDriver 設定了不支援的後端
var ErrUnknownDriver = errors.New("unknown storage driver")

// Open 依設定開啟對應的後端
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", DriverFile:
		return NewFileStore(nil, cfg.Dir)
	case DriverRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
