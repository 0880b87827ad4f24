package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipe-keeper/internal/core/ai/generation"
	"recipe-keeper/internal/core/ai/queue"
	"recipe-keeper/internal/core/extractor"
	recipeImage "recipe-keeper/internal/core/image"
	"recipe-keeper/internal/core/recipe"
	"recipe-keeper/internal/core/store"
	"recipe-keeper/internal/infrastructure/blobstore"
	"recipe-keeper/internal/infrastructure/config"
	"recipe-keeper/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	router  *gin.Engine
	store   *store.RecipeStore
	fs      afero.Fs
	pageURL string
}

// newTestApp 以真實的 store、隊列與擷取流程組出路由，外部網站與生成服務以 httptest 模擬
func newTestApp(t *testing.T, generate http.HandlerFunc) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var pngData bytes.Buffer
	require.NoError(t, png.Encode(&pngData, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tea.png":
			_, _ = w.Write(pngData.Bytes())
		case "/missing":
			http.NotFound(w, r)
		default:
			_, _ = w.Write([]byte(`<html><head><meta property="og:image" content="/tea.png"></head>
				<body><h1>Tea</h1><p>Boil water, then steep the tea bag.</p></body></html>`))
		}
	}))
	t.Cleanup(site.Close)

	genCfg := config.GenerationConfig{Model: "test-model", Timeout: 5 * time.Second}
	if generate != nil {
		llm := httptest.NewServer(generate)
		t.Cleanup(llm.Close)
		genCfg.Endpoint = llm.URL
	}

	fs := afero.NewMemMapFs()
	blobs, err := blobstore.NewFileStore(fs, "/data")
	require.NoError(t, err)
	images, err := recipeImage.NewCache(fs, config.ImagesConfig{
		Dir:             "/data/recipe-images",
		MaxSizeBytes:    1 << 20,
		DownloadTimeout: 5 * time.Second,
	}, "")
	require.NoError(t, err)

	recipes := store.New(blobs, "", images)
	_, err = recipes.Load(context.Background())
	require.NoError(t, err)

	generator := generation.NewClient(genCfg, nil)
	svc := extractor.NewService(extractor.NewHTTPFetcher(config.FetchConfig{Timeout: 5 * time.Second}), generator, images)
	jobs := queue.NewManager(config.QueueConfig{Workers: 1, MaxSize: 4}, svc)
	jobs.Start()
	t.Cleanup(jobs.Close)

	cfg := &config.Config{
		App:         config.AppConfig{Version: "test"},
		Queue:       config.QueueConfig{Workers: 1, MaxSize: 4},
		DedupWindow: time.Millisecond,
	}
	router := SetupRouter(cfg, Services{
		Store:                recipes,
		Queue:                jobs,
		GenerationConfigured: generator.Configured,
	})

	return &testApp{router: router, store: recipes, fs: fs, pageURL: site.URL + "/tea"}
}

func (a *testApp) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func replyWith(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, _ := json.Marshal(generation.Response{
			Choices: []generation.Choice{{Message: &generation.Message{Role: "assistant", Content: content}}},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}
}

func TestRecipeLifecycle(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(http.MethodPost, "/api/v1/recipes", `{"name":"Soup","ingredients":["Salt"],"instructions":["Boil","Serve"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[recipe.Recipe](t, w)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, recipe.CurrentSchemaVersion, created.SchemaVersion)
	require.Len(t, created.IngredientsGroups, 1)
	assert.Equal(t, []string{"Boil", "Serve"}, created.Instructions)

	w = app.do(http.MethodGet, "/api/v1/recipes", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[map[string]any](t, w)
	assert.EqualValues(t, 1, list["count"])

	w = app.do(http.MethodGet, "/api/v1/recipes/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created, decode[recipe.Recipe](t, w))

	w = app.do(http.MethodPut, "/api/v1/recipes/"+created.ID, `{
		"id": "ignored",
		"schemaVersion": 2,
		"name": "Soup v2",
		"ingredientsGroups": [{"title": "Base", "items": [{"name": "Water"}]}],
		"instructionGroups": []
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[recipe.Recipe](t, w)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Soup v2", updated.Name)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, "Water", updated.Ingredients[0].Name)
	assert.Empty(t, updated.Instructions)

	w = app.do(http.MethodDelete, "/api/v1/recipes/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(http.MethodGet, "/api/v1/recipes/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, common.ErrCodeNotFound, decode[common.ErrorResponse](t, w).Code)
	assert.Equal(t, 0, app.store.Count())
}

func TestCreateRejectsInvalidBodies(t *testing.T) {
	app := newTestApp(t, nil)

	for _, body := range []string{`{"ingredients":["Salt"]}`, `not json`, `["Soup"]`, `{"name":"  "}`} {
		w := app.do(http.MethodPost, "/api/v1/recipes", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, common.ErrCodeInvalidRequest, decode[common.ErrorResponse](t, w).Code, body)
	}
	assert.Equal(t, 0, app.store.Count())
}

func TestUpdateAndDeleteUnknownRecipe(t *testing.T) {
	app := newTestApp(t, nil)

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodPut, "/api/v1/recipes/nope", `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodDelete, "/api/v1/recipes/nope", "").Code)
}

func TestExtractAndSave(t *testing.T) {
	app := newTestApp(t, replyWith(`{"name":"Tea","ingredients":["Water","Tea bag"],"instructions":["1. Boil\n2. Steep"]}`))

	w := app.do(http.MethodPost, "/api/v1/recipes/extract", `{"url":"`+app.pageURL+`","save":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[struct {
		Recipe recipe.Recipe `json:"recipe"`
		Saved  bool          `json:"saved"`
	}](t, w)
	assert.True(t, resp.Saved)
	assert.Equal(t, "Tea", resp.Recipe.Name)
	assert.Equal(t, []string{"Boil", "Steep"}, resp.Recipe.Instructions)
	assert.Equal(t, app.pageURL, resp.Recipe.SourceURL)
	require.NotNil(t, resp.Recipe.ImageURI)
	assert.True(t, strings.HasPrefix(*resp.Recipe.ImageURI, "file:///data/recipe-images/"))

	stored, ok := app.store.GetByID(resp.Recipe.ID)
	require.True(t, ok)
	assert.Equal(t, resp.Recipe, stored)

	imagePath := strings.TrimPrefix(*resp.Recipe.ImageURI, "file://")
	exists, _ := afero.Exists(app.fs, imagePath)
	require.True(t, exists)

	require.Equal(t, http.StatusNoContent, app.do(http.MethodDelete, "/api/v1/recipes/"+stored.ID, "").Code)
	exists, _ = afero.Exists(app.fs, imagePath)
	assert.False(t, exists, "deleting a recipe removes its cached image")
}

func TestExtractWithoutSave(t *testing.T) {
	app := newTestApp(t, replyWith(`{"name":"Tea"}`))

	w := app.do(http.MethodPost, "/api/v1/recipes/extract", `{"url":"`+app.pageURL+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, app.store.Count())

	resp := decode[struct {
		Recipe recipe.Recipe `json:"recipe"`
		Saved  bool          `json:"saved"`
	}](t, w)
	assert.False(t, resp.Saved)
	assert.Nil(t, resp.Recipe.ImageURI)

	cached, err := afero.ReadDir(app.fs, "/data/recipe-images")
	require.NoError(t, err)
	assert.Empty(t, cached, "unsaved extractions leave nothing in the image cache")
}

func TestExtractGenerationFailureLeavesStoreUntouched(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"upstream unavailable"}}`, http.StatusInternalServerError)
	})

	w := app.do(http.MethodPost, "/api/v1/recipes/extract", `{"url":"`+app.pageURL+`","save":true}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, common.ErrCodeGenerationFailed, decode[common.ErrorResponse](t, w).Code)
	assert.Equal(t, 0, app.store.Count())
}

func TestExtractErrors(t *testing.T) {
	app := newTestApp(t, replyWith(`no json here`))

	w := app.do(http.MethodPost, "/api/v1/recipes/extract", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/api/v1/recipes/extract", `{"url":"not-a-url"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/api/v1/recipes/extract", `{"url":"`+strings.TrimSuffix(app.pageURL, "/tea")+`/missing"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, common.ErrCodeFetchFailed, decode[common.ErrorResponse](t, w).Code)

	w = app.do(http.MethodPost, "/api/v1/recipes/extract", `{"url":"`+app.pageURL+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, common.ErrCodeMalformedResponse, decode[common.ErrorResponse](t, w).Code)
}

func TestExtractWhenGenerationNotConfigured(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(http.MethodPost, "/api/v1/recipes/extract", `{"url":"`+app.pageURL+`"}`)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, common.ErrCodeNotConfigured, decode[common.ErrorResponse](t, w).Code)
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t, replyWith(`{"name":"Tea"}`))
	_, err := app.store.Add(context.Background(), recipe.New(recipe.Recipe{Name: "Soup"}))
	require.NoError(t, err)

	w := app.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]any](t, w)
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 1, health["recipes"])
	assert.Equal(t, true, health["generation_configured"])
	assert.NotNil(t, health["queue"])
	assert.Nil(t, health["cache"])

	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/live", "").Code)
	ready := decode[map[string]any](t, app.do(http.MethodGet, "/ready", ""))
	assert.Equal(t, "ready", ready["status"])
}
