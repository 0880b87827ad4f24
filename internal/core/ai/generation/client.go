package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"recipe-keeper/internal/infrastructure/config"
	"recipe-keeper/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// systemPrompt 要求模型只輸出 JSON
const systemPrompt = "You are a recipe extraction assistant. You MUST respond with ONLY valid JSON. " +
	"Never include explanations, markdown, or any text outside the JSON object. " +
	"Always format your response as a single JSON object."

// Message 消息結構
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat 要求模型輸出的格式
type ResponseFormat struct {
	Type string `json:"type"`
}

// Request 生成服務請求
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	Seed           int             `json:"seed"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Response 生成服務響應結構
type Response struct {
	ID      string    `json:"id"`
	Choices []Choice  `json:"choices"`
	Usage   UsageInfo `json:"usage"`
	Error   *APIError `json:"error,omitempty"`
}

// Choice 選擇結構
type Choice struct {
	Message *Message `json:"message"`
}

// UsageInfo 使用量信息
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// APIError 服務回報的錯誤內容
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    any    `json:"code,omitempty"`
}

// ModelConfig 單一候選模型的參數
type ModelConfig struct {
	Model                  string  `json:"model"`
	Temperature            float64 `json:"temperature"`
	Seed                   int     `json:"seed"`
	SupportsResponseFormat bool    `json:"supportsResponseFormat"`
}

// Cache 生成結果緩存
type Cache interface {
	Get(ctx context.Context, model, prompt string) (string, bool)
	Set(ctx context.Context, model, prompt, value string) error
}

// Client 生成服務客戶端
type Client struct {
	config config.GenerationConfig
	client *resty.Client
	cache  Cache

	mu     sync.RWMutex
	models []ModelConfig
}

// NewClient 創建生成服務客戶端；cache 可為 nil
func NewClient(cfg config.GenerationConfig, cache Cache) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &Client{
		config: cfg,
		client: client,
		cache:  cache,
		models: defaultModels(cfg),
	}
}

// defaultModels 由設定組出候選清單：主模型在前，備援模型依序接在後面
func defaultModels(cfg config.GenerationConfig) []ModelConfig {
	names := []string{}
	if m := strings.TrimSpace(cfg.Model); m != "" {
		names = append(names, m)
	}
	names = append(names, cfg.FallbackModels...)

	models := make([]ModelConfig, 0, len(names))
	seen := map[string]bool{}
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		models = append(models, ModelConfig{
			Model:                  name,
			Temperature:            cfg.Temperature,
			Seed:                   cfg.Seed,
			SupportsResponseFormat: cfg.ResponseFormat,
		})
	}
	return models
}

// Configured 端點與至少一個模型都已設定
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.config.Endpoint) != "" && len(c.Models()) > 0
}

// Models 回傳目前候選模型的副本
func (c *Client) Models() []ModelConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ModelConfig(nil), c.models...)
}

// RefreshModels 從遠端模型設定更新候選清單
//
// 取得失敗或內容無效時保留目前的清單並回傳錯誤。
func (c *Client) RefreshModels(ctx context.Context) error {
	if c.config.ModelConfigURL == "" {
		return nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Cache-Control", "no-cache").
		Get(c.config.ModelConfigURL)
	if err != nil {
		common.LogWarn("Failed to fetch model config, keeping configured models", zap.Error(err))
		return fmt.Errorf("fetch model config: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		common.LogWarn("Model config returned error status, keeping configured models",
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("fetch model config: status %d", resp.StatusCode())
	}

	var fetched []ModelConfig
	if err := json.Unmarshal(resp.Body(), &fetched); err != nil {
		return fmt.Errorf("parse model config: %w", err)
	}
	models := make([]ModelConfig, 0, len(fetched))
	for _, m := range fetched {
		if strings.TrimSpace(m.Model) != "" {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		return fmt.Errorf("model config contains no models")
	}

	c.mu.Lock()
	c.models = models
	c.mu.Unlock()

	common.LogInfo("Model config loaded", zap.Int("models", len(models)))
	return nil
}

// Generate 依序嘗試每個候選模型，回傳第一個成功的內容
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", common.ErrGenerationNotConfigured
	}

	content, err := FirstSuccess(ctx, c.Models(), func(ctx context.Context, m ModelConfig) (string, error) {
		return c.Complete(ctx, m, prompt)
	})
	if err != nil {
		return "", common.ErrGenerationFailed.Wrap(err)
	}
	return content, nil
}

// Complete 以指定模型呼叫一次生成服務
func (c *Client) Complete(ctx context.Context, model ModelConfig, prompt string) (string, error) {
	if cached, ok := c.cacheGet(ctx, model.Model, prompt); ok {
		return cached, nil
	}

	req := &Request{
		Model: model.Model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: model.Temperature,
		Seed:        model.Seed,
		MaxTokens:   c.config.MaxTokens,
	}
	if model.SupportsResponseFormat {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	common.LogDebug("Sending request to generation service",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
		zap.Int("prompt_length", len(prompt)),
	)

	start := time.Now()
	content, err := c.send(ctx, req)
	common.LogAICall(req.Model, time.Since(start), err)
	if err != nil {
		return "", err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, model.Model, prompt, content); err != nil {
			common.LogWarn("Failed to cache completion", zap.Error(err))
		}
	}
	return content, nil
}

func (c *Client) cacheGet(ctx context.Context, model, prompt string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	return c.cache.Get(ctx, model, prompt)
}

// send 發送請求並驗證響應
func (c *Client) send(ctx context.Context, req *Request) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(c.config.Endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("generation service error (status %d): %s", resp.StatusCode(), truncate(string(body), 300))
	}

	var response Response
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if response.Error != nil {
		msg := response.Error.Message
		if msg == "" {
			msg = "unknown error"
		}
		return "", fmt.Errorf("generation service reported error: %s", msg)
	}
	if len(response.Choices) == 0 || response.Choices[0].Message == nil {
		return "", errors.New("invalid response structure: missing choice message")
	}

	content := response.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", errors.New("empty content in response")
	}
	return content, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
