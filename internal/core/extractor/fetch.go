package extractor

import (
	"context"
	"fmt"
	"io"

	"recipe-keeper/internal/infrastructure/config"
	"recipe-keeper/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// PageFetcher 取得網頁原始內容
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// HTTPFetcher 以 HTTP 取得網頁
type HTTPFetcher struct {
	config config.FetchConfig
	client *resty.Client
}

// NewHTTPFetcher 建立網頁抓取器
func NewHTTPFetcher(cfg config.FetchConfig) *HTTPFetcher {
	client := resty.New().SetTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &HTTPFetcher{config: cfg, client: client}
}

// requestURL 需要跨域代理時在網址前加上代理前綴
func (f *HTTPFetcher) requestURL(pageURL string) string {
	if f.config.UseProxy && f.config.CORSProxy != "" {
		return f.config.CORSProxy + pageURL
	}
	return pageURL
}

// Fetch 取得網頁內容；網路錯誤或非 2xx 狀態都視為失敗
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	target := f.requestURL(pageURL)
	common.LogDebug("Fetching page", zap.String("url", target))

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(target)
	if err != nil {
		return "", common.ErrFetchFailed.Wrap(err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if !resp.IsSuccess() {
		return "", common.ErrFetchFailed.Wrap(fmt.Errorf("status code %d", resp.StatusCode()))
	}

	var reader io.Reader = raw
	if f.config.MaxBodyBytes > 0 {
		reader = io.LimitReader(raw, f.config.MaxBodyBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", common.ErrFetchFailed.Wrap(fmt.Errorf("read body: %w", err))
	}
	return string(body), nil
}
