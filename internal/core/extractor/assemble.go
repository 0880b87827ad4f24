package extractor

import (
	"recipe-keeper/internal/core/recipe"
)

// Assemble 將解析後的模型輸出組成目前版本的食譜
//
// 每一側獨立判斷：有分組欄位就使用分組（空陣列代表沒有項目），
// 否則由攤平欄位補出單一未命名分組。步驟內容一律經過 NormalizeInstructions。
func Assemble(data recipe.Record, imageURI *string, sourceURL string) recipe.Recipe {
	in := recipe.Recipe{
		Name:        recipe.AsOptionalString(data["name"]),
		ImageURI:    imageURI,
		SourceURL:   sourceURL,
		CookingTime: recipe.AsOptionalString(data["cookingTime"]),
		Calories:    recipe.AsOptionalString(data["calories"]),
		Tags:        recipe.AsStrings(data["tags"]),
	}

	if data["ingredientsGroups"] != nil {
		in.IngredientsGroups = recipe.AsIngredientGroups(data["ingredientsGroups"])
	} else {
		in.Ingredients = recipe.AsIngredients(data["ingredients"])
	}

	if data["instructionGroups"] != nil {
		groups := recipe.AsInstructionGroups(data["instructionGroups"])
		for i := range groups {
			groups[i].Items = NormalizeInstructions(groups[i].Items)
		}
		in.InstructionGroups = groups
	} else {
		in.Instructions = NormalizeInstructions(recipe.AsInstructions(data["instructions"]))
	}

	return recipe.New(in)
}
