package recipe

import (
	"strings"

	"recipe-keeper/internal/pkg/common"
)

// CurrentSchemaVersion 目前的持久化結構版本
const CurrentSchemaVersion = 2

// Ingredient 食材，以 ID 識別，名稱可編輯
type Ingredient struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewIngredient 建立帶有新識別碼的食材
func NewIngredient(name string) Ingredient {
	return Ingredient{ID: common.GenerateID(), Name: name}
}

// IngredientGroup 食材分組，Title 為空代表未分組
type IngredientGroup struct {
	ID    string       `json:"id"`
	Title string       `json:"title,omitempty"`
	Items []Ingredient `json:"items"`
}

// InstructionGroup 步驟分組，Items 的順序即執行順序
type InstructionGroup struct {
	ID    string   `json:"id"`
	Title string   `json:"title,omitempty"`
	Items []string `json:"items"`
}

// RecipeStep 舊版步驟結構，只在遷移時讀取
type RecipeStep struct {
	ID           string       `json:"id"`
	Title        string       `json:"title,omitempty"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
}

// Recipe 食譜
//
// IngredientsGroups 與 InstructionGroups 是唯一的資料來源；
// Ingredients 與 Instructions 只是依分組順序攤平後的投影，每次建構都會重新計算。
type Recipe struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	ImageURI          *string            `json:"imageUri"`
	Ingredients       []Ingredient       `json:"ingredients"`
	Instructions      []string           `json:"instructions"`
	IngredientsGroups []IngredientGroup  `json:"ingredientsGroups"`
	InstructionGroups []InstructionGroup `json:"instructionGroups"`
	SourceURL         string             `json:"sourceUrl,omitempty"`
	CookingTime       string             `json:"cookingTime,omitempty"`
	Calories          string             `json:"calories,omitempty"`
	Tags              []string           `json:"tags"`
	UserID            string             `json:"userId,omitempty"`
	SchemaVersion     int                `json:"schemaVersion"`
}

// New 以輸入內容建構食譜
//
// 回傳值與輸入不共用任何切片。ID 為空時產生新 ID；分組缺漏時由攤平欄位補出單一未命名分組；
// 攤平欄位一律由分組重新推導；SchemaVersion 一律蓋上目前版本。
func New(in Recipe) Recipe {
	out := Recipe{
		ID:            in.ID,
		Name:          in.Name,
		SourceURL:     in.SourceURL,
		CookingTime:   in.CookingTime,
		Calories:      in.Calories,
		UserID:        in.UserID,
		Tags:          append([]string{}, in.Tags...),
		SchemaVersion: CurrentSchemaVersion,
	}
	if out.ID == "" {
		out.ID = common.GenerateID()
	}
	if in.ImageURI != nil {
		uri := *in.ImageURI
		out.ImageURI = &uri
	}

	if in.IngredientsGroups != nil {
		out.IngredientsGroups = copyIngredientGroups(in.IngredientsGroups)
	} else {
		out.IngredientsGroups = []IngredientGroup{UngroupedIngredients(in.Ingredients)}
	}
	if in.InstructionGroups != nil {
		out.InstructionGroups = copyInstructionGroups(in.InstructionGroups)
	} else {
		out.InstructionGroups = []InstructionGroup{UngroupedInstructions(in.Instructions)}
	}

	out.Ingredients = FlattenIngredients(out.IngredientsGroups)
	out.Instructions = FlattenInstructions(out.InstructionGroups)
	return out
}

// Clone 回傳深拷貝
func (r Recipe) Clone() Recipe {
	return New(r)
}

// Validate 檢查持久化前的必要欄位
func (r Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return common.NewValidationError("recipe name is required")
	}
	return nil
}

// UngroupedIngredients 將攤平的食材包成單一未命名分組
func UngroupedIngredients(items []Ingredient) IngredientGroup {
	return IngredientGroup{ID: common.GenerateID(), Items: withIngredientIDs(items)}
}

// UngroupedInstructions 將攤平的步驟包成單一未命名分組
func UngroupedInstructions(items []string) InstructionGroup {
	return InstructionGroup{ID: common.GenerateID(), Items: append([]string{}, items...)}
}

// FlattenIngredients 依分組順序再依項目順序串接所有食材
func FlattenIngredients(groups []IngredientGroup) []Ingredient {
	out := []Ingredient{}
	for _, g := range groups {
		out = append(out, g.Items...)
	}
	return out
}

// FlattenInstructions 依分組順序再依項目順序串接所有步驟
func FlattenInstructions(groups []InstructionGroup) []string {
	out := []string{}
	for _, g := range groups {
		out = append(out, g.Items...)
	}
	return out
}

func copyIngredientGroups(groups []IngredientGroup) []IngredientGroup {
	out := make([]IngredientGroup, 0, len(groups))
	for _, g := range groups {
		id := g.ID
		if id == "" {
			id = common.GenerateID()
		}
		out = append(out, IngredientGroup{ID: id, Title: g.Title, Items: withIngredientIDs(g.Items)})
	}
	return out
}

func copyInstructionGroups(groups []InstructionGroup) []InstructionGroup {
	out := make([]InstructionGroup, 0, len(groups))
	for _, g := range groups {
		id := g.ID
		if id == "" {
			id = common.GenerateID()
		}
		out = append(out, InstructionGroup{ID: id, Title: g.Title, Items: append([]string{}, g.Items...)})
	}
	return out
}

// withIngredientIDs 複製食材並補上缺少的 ID
func withIngredientIDs(items []Ingredient) []Ingredient {
	out := make([]Ingredient, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			it.ID = common.GenerateID()
		}
		out = append(out, it)
	}
	return out
}
