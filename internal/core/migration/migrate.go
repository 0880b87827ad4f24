package migration

import (
	"maps"

	"recipe-keeper/internal/core/recipe"
)

// Migrator 將紀錄升級一個版本，必須是全函數且可重複執行
type Migrator func(rec recipe.Record) recipe.Record

// migrators 依起始版本索引的升級鏈
var migrators = map[int]Migrator{
	1: migrateV1ToV2,
	// 新版本在此加入：2: migrateV2ToV3
}

// legacyVersion 沒有 schemaVersion 的紀錄視為最舊的格式
const legacyVersion = 1

// StoredVersion 讀取紀錄宣告的版本，缺漏或非數字時視為第 1 版
func StoredVersion(input any) int {
	rec, ok := input.(map[string]any)
	if !ok {
		return legacyVersion
	}
	if v, ok := recipe.AsInt(rec["schemaVersion"]); ok {
		return v
	}
	return legacyVersion
}

// NeedsMigration 判斷紀錄是否不是目前版本
func NeedsMigration(input any) bool {
	return StoredVersion(input) != recipe.CurrentSchemaVersion
}

// MigrateToLatest 將任意持久化紀錄升級到目前版本
//
// 不會 panic 也不回傳錯誤：非物件輸入視為空紀錄，缺漏欄位退化為空分組。
// 升級鏈在到達目前版本或找不到對應 migrator 時停止，之後一律執行最終正規化。
func MigrateToLatest(input any) recipe.Record {
	src, _ := input.(map[string]any)
	out := maps.Clone(src)
	if out == nil {
		out = recipe.Record{}
	}

	version := StoredVersion(src)
	out["schemaVersion"] = version
	for version < recipe.CurrentSchemaVersion {
		migrate, ok := migrators[version]
		if !ok {
			break
		}
		out = migrate(out)
		version++
		out["schemaVersion"] = version
	}

	return normalize(out)
}

// migrateV1ToV2 將攤平的食材與步驟包成各一個未命名分組
func migrateV1ToV2(v1 recipe.Record) recipe.Record {
	out := maps.Clone(v1)
	out["name"] = recipe.AsString(v1["name"])

	if !present(v1, "ingredientsGroups") && !hasSteps(v1) {
		out["ingredientsGroups"] = []recipe.IngredientGroup{
			recipe.UngroupedIngredients(recipe.AsIngredients(v1["ingredients"])),
		}
	}
	if !present(v1, "instructionGroups") && !hasSteps(v1) {
		out["instructionGroups"] = []recipe.InstructionGroup{
			recipe.UngroupedInstructions(recipe.AsInstructions(v1["instructions"])),
		}
	}
	out["schemaVersion"] = 2
	return out
}

// normalize 保證輸出符合目前版本的形狀
func normalize(rec recipe.Record) recipe.Record {
	var steps []recipe.RecipeStep
	if hasSteps(rec) {
		steps = recipe.AsSteps(rec["steps"])
	}
	fromSteps := len(steps) > 0

	if present(rec, "ingredientsGroups") {
		rec["ingredientsGroups"] = recipe.AsIngredientGroups(rec["ingredientsGroups"])
	} else if fromSteps {
		rec["ingredientsGroups"] = ingredientGroupsFromSteps(steps)
	} else {
		rec["ingredientsGroups"] = []recipe.IngredientGroup{
			recipe.UngroupedIngredients(recipe.AsIngredients(rec["ingredients"])),
		}
	}

	if present(rec, "instructionGroups") {
		rec["instructionGroups"] = recipe.AsInstructionGroups(rec["instructionGroups"])
	} else if fromSteps {
		rec["instructionGroups"] = instructionGroupsFromSteps(steps)
	} else {
		rec["instructionGroups"] = []recipe.InstructionGroup{
			recipe.UngroupedInstructions(recipe.AsInstructions(rec["instructions"])),
		}
	}

	ingredientGroups := rec["ingredientsGroups"].([]recipe.IngredientGroup)
	instructionGroups := rec["instructionGroups"].([]recipe.InstructionGroup)
	rec["ingredients"] = recipe.FlattenIngredients(ingredientGroups)
	rec["instructions"] = recipe.FlattenInstructions(instructionGroups)
	rec["name"] = recipe.AsString(rec["name"])
	rec["tags"] = recipe.AsStrings(rec["tags"])
	delete(rec, "steps")
	rec["schemaVersion"] = recipe.CurrentSchemaVersion
	return rec
}

// present 欄位存在且不為 null
func present(rec recipe.Record, key string) bool {
	v, ok := rec[key]
	return ok && v != nil
}

// hasSteps 只有非空的舊版 steps 陣列才優先於攤平欄位
func hasSteps(rec recipe.Record) bool {
	switch t := rec["steps"].(type) {
	case []any:
		return len(t) > 0
	case []recipe.RecipeStep:
		return len(t) > 0
	}
	return false
}

func ingredientGroupsFromSteps(steps []recipe.RecipeStep) []recipe.IngredientGroup {
	groups := make([]recipe.IngredientGroup, 0, len(steps))
	for _, step := range steps {
		g := recipe.UngroupedIngredients(step.Ingredients)
		g.Title = step.Title
		groups = append(groups, g)
	}
	return groups
}

func instructionGroupsFromSteps(steps []recipe.RecipeStep) []recipe.InstructionGroup {
	groups := make([]recipe.InstructionGroup, 0, len(steps))
	for _, step := range steps {
		g := recipe.UngroupedInstructions(step.Instructions)
		g.Title = step.Title
		groups = append(groups, g)
	}
	return groups
}

// ToRecipe 遷移後轉為型別化的食譜
func ToRecipe(input any) recipe.Recipe {
	return recipe.FromRecord(MigrateToLatest(input))
}
