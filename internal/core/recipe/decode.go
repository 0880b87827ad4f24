package recipe

import (
	"encoding/json"
	"strconv"
	"strings"

	"recipe-keeper/internal/pkg/common"
)

// Record 未經驗證的持久化或 AI 輸出物件
type Record = map[string]any

// 以下轉換函式都是全函數：任何輸入都回傳可用的值，不回傳錯誤。

// AsString 將純量轉為字串，非純量回傳空字串
func AsString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// AsOptionalString 將可選欄位轉為去除前後空白的字串
func AsOptionalString(v any) string {
	return strings.TrimSpace(AsString(v))
}

// AsInt 取得整數值，無法解析時 ok 為 false
func AsInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
		if f, err := t.Float64(); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

// AsList 將「清單」欄位轉為切片：陣列照用，字串與物件包成單元素，其他值視為空
func AsList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, 0, len(t))
		for _, s := range t {
			out = append(out, s)
		}
		return out
	case string:
		return []any{t}
	case map[string]any:
		return []any{t}
	default:
		return []any{}
	}
}

// AsStrings 轉為去除空白後非空的字串清單
func AsStrings(v any) []string {
	out := []string{}
	for _, item := range AsList(v) {
		if s := strings.TrimSpace(AsString(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AsIngredient 將食材狀的值轉為 Ingredient，字串或其他值都會被包裝
func AsIngredient(v any) Ingredient {
	switch t := v.(type) {
	case Ingredient:
		if t.ID == "" {
			t.ID = common.GenerateID()
		}
		return t
	case map[string]any:
		name := AsString(t["name"])
		id := AsString(t["id"])
		if id == "" {
			id = common.GenerateID()
		}
		return Ingredient{ID: id, Name: name}
	default:
		return NewIngredient(AsString(v))
	}
}

// AsIngredients 轉為食材清單，略過名稱為空的項目
func AsIngredients(v any) []Ingredient {
	if typed, ok := v.([]Ingredient); ok {
		return withIngredientIDs(typed)
	}
	out := []Ingredient{}
	for _, item := range AsList(v) {
		ing := AsIngredient(item)
		if strings.TrimSpace(ing.Name) == "" {
			continue
		}
		out = append(out, ing)
	}
	return out
}

// AsInstructions 轉為步驟清單，單一字串視為一個步驟
func AsInstructions(v any) []string {
	if typed, ok := v.([]string); ok {
		return AsStrings(typed)
	}
	return AsStrings(v)
}

// AsIngredientGroups 轉為食材分組；非物件元素被視為單一未命名分組的內容
func AsIngredientGroups(v any) []IngredientGroup {
	if typed, ok := v.([]IngredientGroup); ok {
		return copyIngredientGroups(typed)
	}
	out := []IngredientGroup{}
	for _, item := range AsList(v) {
		m, ok := item.(map[string]any)
		if !ok {
			out = append(out, UngroupedIngredients(AsIngredients(item)))
			continue
		}
		id := AsString(m["id"])
		if id == "" {
			id = common.GenerateID()
		}
		out = append(out, IngredientGroup{
			ID:    id,
			Title: AsOptionalString(m["title"]),
			Items: AsIngredients(m["items"]),
		})
	}
	return out
}

// AsInstructionGroups 轉為步驟分組
func AsInstructionGroups(v any) []InstructionGroup {
	if typed, ok := v.([]InstructionGroup); ok {
		return copyInstructionGroups(typed)
	}
	out := []InstructionGroup{}
	for _, item := range AsList(v) {
		m, ok := item.(map[string]any)
		if !ok {
			out = append(out, UngroupedInstructions(AsInstructions(item)))
			continue
		}
		id := AsString(m["id"])
		if id == "" {
			id = common.GenerateID()
		}
		out = append(out, InstructionGroup{
			ID:    id,
			Title: AsOptionalString(m["title"]),
			Items: AsInstructions(m["items"]),
		})
	}
	return out
}

// AsSteps 轉為舊版步驟清單
func AsSteps(v any) []RecipeStep {
	if typed, ok := v.([]RecipeStep); ok {
		return typed
	}
	out := []RecipeStep{}
	for _, item := range AsList(v) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := AsString(m["id"])
		if id == "" {
			id = common.GenerateID()
		}
		out = append(out, RecipeStep{
			ID:           id,
			Title:        AsOptionalString(m["title"]),
			Ingredients:  AsIngredients(m["ingredients"]),
			Instructions: AsInstructions(m["instructions"]),
		})
	}
	return out
}

// FromRecord 將目前版本的紀錄逐欄驗證並轉為 Recipe
//
// 紀錄應先經過遷移；缺少分組時仍會由攤平欄位補出，因此任何輸入都會得到有效食譜。
func FromRecord(rec Record) Recipe {
	in := Recipe{
		ID:          AsString(rec["id"]),
		Name:        AsString(rec["name"]),
		SourceURL:   AsOptionalString(rec["sourceUrl"]),
		CookingTime: AsOptionalString(rec["cookingTime"]),
		Calories:    AsOptionalString(rec["calories"]),
		UserID:      AsOptionalString(rec["userId"]),
		Tags:        AsStrings(rec["tags"]),
	}
	if uri := strings.TrimSpace(AsString(rec["imageUri"])); uri != "" {
		in.ImageURI = &uri
	}
	if rec["ingredientsGroups"] != nil {
		in.IngredientsGroups = AsIngredientGroups(rec["ingredientsGroups"])
	} else {
		in.Ingredients = AsIngredients(rec["ingredients"])
	}
	if rec["instructionGroups"] != nil {
		in.InstructionGroups = AsInstructionGroups(rec["instructionGroups"])
	} else {
		in.Instructions = AsInstructions(rec["instructions"])
	}
	return New(in)
}
