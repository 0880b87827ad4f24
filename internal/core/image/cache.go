package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "image/gif"  // 支援 GIF
	_ "image/jpeg" // 支援 JPEG
	_ "image/png"  // 支援 PNG

	"recipe-keeper/internal/infrastructure/config"
	"recipe-keeper/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // 支援 WebP
)

// FileScheme 本機快取圖片的 URI 前綴
const FileScheme = "file://"

// Cache 食譜圖片的私有快取目錄
type Cache struct {
	fs           afero.Fs
	dir          string
	maxSizeBytes int64
	client       *resty.Client
	now          func() time.Time
}

// NewCache 建立圖片快取；fsys 為 nil 時使用作業系統檔案系統
func NewCache(fsys afero.Fs, cfg config.ImagesConfig, userAgent string) (*Cache, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "recipe-images"
	}
	if _, ok := fsys.(*afero.OsFs); ok {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolve image dir: %w", err)
		}
		dir = abs
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	client := resty.New().SetTimeout(cfg.DownloadTimeout)
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}

	return &Cache{
		fs:           fsys,
		dir:          filepath.Clean(dir),
		maxSizeBytes: cfg.MaxSizeBytes,
		client:       client,
		now:          time.Now,
	}, nil
}

// Dir 快取目錄
func (c *Cache) Dir() string {
	return c.dir
}

// Download 下載圖片並存入快取，回傳帶 file:// 前綴的 URI
func (c *Cache) Download(ctx context.Context, imageURL string) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(imageURL)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if !resp.IsSuccess() {
		return "", fmt.Errorf("failed to download image: status code %d", resp.StatusCode())
	}

	var reader io.Reader = raw
	if c.maxSizeBytes > 0 {
		reader = io.LimitReader(raw, c.maxSizeBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read image data: %w", err)
	}

	if _, err := Validate(data, c.maxSizeBytes); err != nil {
		return "", err
	}

	path := c.nextPath()
	if err := afero.WriteFile(c.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	common.LogDebug("Image cached", zap.String("path", path), zap.Int("bytes", len(data)))
	return FileScheme + path, nil
}

// nextPath 以時間戳命名，重複時加上序號
func (c *Cache) nextPath() string {
	base := strconv.FormatInt(c.now().UnixNano(), 10)
	path := filepath.Join(c.dir, base+".jpg")
	for i := 1; ; i++ {
		if exists, _ := afero.Exists(c.fs, path); !exists {
			return path
		}
		path = filepath.Join(c.dir, base+"-"+strconv.Itoa(i)+".jpg")
	}
}

// Owns 判斷 URI 是否指向快取目錄內的檔案
func (c *Cache) Owns(uri string) bool {
	_, ok := c.localPath(uri)
	return ok
}

func (c *Cache) localPath(uri string) (string, bool) {
	if uri == "" {
		return "", false
	}
	path := filepath.Clean(strings.TrimPrefix(uri, FileScheme))
	rel, err := filepath.Rel(c.dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}

// Remove 刪除快取中的圖片；不在快取目錄內或已不存在時不視為錯誤
func (c *Cache) Remove(uri string) error {
	path, ok := c.localPath(uri)
	if !ok {
		return nil
	}
	if err := c.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cached image: %w", err)
	}
	return nil
}

// Validate 檢查圖片大小與格式，回傳偵測到的格式
func Validate(data []byte, maxSizeBytes int64) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image data")
	}
	if maxSizeBytes > 0 && int64(len(data)) > maxSizeBytes {
		return "", fmt.Errorf("image size exceeds maximum limit of %d bytes", maxSizeBytes)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	if !isSupportedFormat(format) {
		return "", fmt.Errorf("unsupported image format: %s", format)
	}
	return format, nil
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
