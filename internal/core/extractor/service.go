package extractor

import (
	"context"
	"net/url"
	"strings"
	"time"

	"recipe-keeper/internal/core/recipe"
	"recipe-keeper/internal/pkg/common"

	"go.uber.org/zap"
)

// Generator 文字生成服務
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageDownloader 將圖片存入私有快取並回傳本機 URI
type ImageDownloader interface {
	Download(ctx context.Context, imageURL string) (string, error)
	Remove(uri string) error
}

// Service 擷取流程：抓取 → 清理 → 提示 → 生成 → 解析 → 正規化 → 組裝
type Service struct {
	fetcher   PageFetcher
	generator Generator
	images    ImageDownloader
}

// NewService 建立擷取服務；images 為 nil 時不下載圖片
func NewService(fetcher PageFetcher, generator Generator, images ImageDownloader) *Service {
	return &Service{
		fetcher:   fetcher,
		generator: generator,
		images:    images,
	}
}

// Options 單次擷取的選項
type Options struct {
	// ExtraInstructions 附加在提示詞後的使用者說明
	ExtraInstructions string
	// SkipImage 不下載圖片，用於不會保存的擷取
	SkipImage bool
}

// Extract 由網址產生食譜
//
// 只有抓取、生成與解析階段的錯誤會回傳；圖片相關的失敗只記錄並略過。
func (s *Service) Extract(ctx context.Context, pageURL string, opts Options) (recipe.Recipe, error) {
	pageURL = strings.TrimSpace(pageURL)
	if err := validatePageURL(pageURL); err != nil {
		return recipe.Recipe{}, err
	}
	start := time.Now()

	markup, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		common.LogWarn("Failed to fetch page", zap.String("url", pageURL), zap.Error(err))
		return recipe.Recipe{}, err
	}

	var imageURI *string
	if !opts.SkipImage {
		imageURI = s.cacheImage(ctx, markup, pageURL)
	}

	content := CleanText(markup)
	prompt := BuildPrompt(content, SectionHints(markup), opts.ExtraInstructions)

	completion, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.discardImage(imageURI)
		return recipe.Recipe{}, err
	}

	data, err := ParseResponse(completion)
	if err != nil {
		common.LogWarn("Failed to parse generation response",
			zap.String("url", pageURL),
			zap.Int("response_length", len(completion)),
			zap.Error(err),
		)
		s.discardImage(imageURI)
		return recipe.Recipe{}, err
	}

	r := Assemble(data, imageURI, pageURL)
	common.LogInfo("Recipe extracted",
		zap.String("url", pageURL),
		zap.String("name", r.Name),
		zap.Int("ingredients", len(r.Ingredients)),
		zap.Int("instructions", len(r.Instructions)),
		zap.Bool("has_image", r.ImageURI != nil),
		zap.Duration("耗時", time.Since(start)),
	)
	return r, nil
}

// cacheImage 找出並下載代表圖片，任何失敗都回傳 nil
func (s *Service) cacheImage(ctx context.Context, markup, pageURL string) *string {
	if s.images == nil {
		return nil
	}
	imageURL := FindImageURL(markup, pageURL)
	if imageURL == "" {
		return nil
	}
	uri, err := s.images.Download(ctx, imageURL)
	if err != nil {
		common.LogWarn("Failed to download recipe image",
			zap.String("image_url", imageURL),
			zap.Error(err),
		)
		return nil
	}
	return &uri
}

// discardImage 擷取失敗時刪除已下載的圖片，避免快取目錄留下無主檔案
func (s *Service) discardImage(uri *string) {
	if uri == nil {
		return
	}
	if err := s.images.Remove(*uri); err != nil {
		common.LogWarn("Failed to discard image of failed extraction", zap.String("image_uri", *uri), zap.Error(err))
	}
}

func validatePageURL(pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return common.NewValidationError("url must be an absolute http(s) URL")
	}
	return nil
}
