package recipe

import (
	"context"
	"net/http"
	"strings"

	"recipe-keeper/internal/core/extractor"
	"recipe-keeper/internal/core/migration"
	"recipe-keeper/internal/core/recipe"
	"recipe-keeper/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Store 食譜存取
type Store interface {
	GetAll() []recipe.Recipe
	GetByID(id string) (recipe.Recipe, bool)
	Count() int
	Add(ctx context.Context, r recipe.Recipe) (recipe.Recipe, error)
	Update(ctx context.Context, r recipe.Recipe) error
	Delete(ctx context.Context, id string) error
}

// Extractor 排入隊列執行的擷取
type Extractor interface {
	Submit(ctx context.Context, pageURL string, opts extractor.Options) (recipe.Recipe, error)
}

// ExtractRequest 由網址擷取食譜
type ExtractRequest struct {
	URL               string `json:"url" binding:"required"`
	ExtraInstructions string `json:"extra_instructions,omitempty"`
	Save              bool   `json:"save,omitempty"`
}

// ExtractResponse 擷取結果
type ExtractResponse struct {
	Recipe recipe.Recipe `json:"recipe"`
	Saved  bool          `json:"saved"`
}

// ListResponse 食譜清單
type ListResponse struct {
	Recipes []recipe.Recipe `json:"recipes"`
	Count   int             `json:"count"`
}

// Handler 食譜處理程序
type Handler struct {
	store     Store
	extractor Extractor
	debug     bool
}

// NewHandler 創建新的食譜處理程序
func NewHandler(store Store, extractor Extractor, debug bool) *Handler {
	return &Handler{
		store:     store,
		extractor: extractor,
		debug:     debug,
	}
}

// List 列出所有食譜
func (h *Handler) List(c *gin.Context) {
	recipes := h.store.GetAll()
	c.JSON(http.StatusOK, ListResponse{Recipes: recipes, Count: len(recipes)})
}

// Get 取得單一食譜
func (h *Handler) Get(c *gin.Context) {
	r, ok := h.store.GetByID(c.Param("id"))
	if !ok {
		h.respondError(c, common.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Create 手動新增食譜
func (h *Handler) Create(c *gin.Context) {
	rec, err := decodeRecord(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	r := migration.ToRecipe(rec)
	if err := r.Validate(); err != nil {
		h.respondError(c, err)
		return
	}

	stored, err := h.store.Add(c.Request.Context(), r)
	if err != nil {
		h.respondError(c, err)
		return
	}

	common.LogInfo("Recipe created",
		zap.String("request_id", requestid.Get(c)),
		zap.String("recipe_id", stored.ID),
	)
	c.JSON(http.StatusCreated, stored)
}

// Replace 以請求內容整筆取代食譜，ID 以路徑為準
func (h *Handler) Replace(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.store.GetByID(id); !ok {
		h.respondError(c, common.ErrNotFound)
		return
	}

	rec, err := decodeRecord(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	rec["id"] = id

	r := migration.ToRecipe(rec)
	if err := r.Validate(); err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.store.Update(c.Request.Context(), r); err != nil {
		h.respondError(c, err)
		return
	}

	updated, _ := h.store.GetByID(id)
	c.JSON(http.StatusOK, updated)
}

// Delete 刪除食譜
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.store.GetByID(id); !ok {
		h.respondError(c, common.ErrNotFound)
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Extract 由網址擷取食譜，save 為 true 時一併存入
func (h *Handler) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, common.NewValidationError("url is required"))
		return
	}

	common.LogInfo("開始處理食譜擷取請求",
		zap.String("request_id", requestid.Get(c)),
		zap.String("url", req.URL),
		zap.Bool("save", req.Save),
	)

	// 不保存時不下載圖片
	opts := extractor.Options{
		ExtraInstructions: req.ExtraInstructions,
		SkipImage:         !req.Save,
	}
	r, err := h.extractor.Submit(c.Request.Context(), strings.TrimSpace(req.URL), opts)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := ExtractResponse{Recipe: r}
	if req.Save {
		stored, err := h.store.Add(c.Request.Context(), r)
		if err != nil {
			h.respondError(c, err)
			return
		}
		resp.Recipe = stored
		resp.Saved = true
	}
	c.JSON(http.StatusOK, resp)
}

// decodeRecord 以未驗證的物件讀取請求體，交由遷移與轉換流程逐欄處理
func decodeRecord(c *gin.Context) (recipe.Record, error) {
	var rec recipe.Record
	if err := common.DecodeJSON(c.Request.Body, &rec); err != nil || rec == nil {
		return nil, common.NewValidationError("request body must be a JSON object")
	}
	return rec, nil
}
