package extractor

import (
	"testing"

	"recipe-keeper/internal/core/recipe"
	"recipe-keeper/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseRecord(t *testing.T, raw string) recipe.Record {
	t.Helper()
	var rec recipe.Record
	require.NoError(t, common.ParseJSON(raw, &rec))
	return rec
}

func ingredientNames(items []recipe.Ingredient) []string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return names
}

func TestAssembleFlatResponse(t *testing.T) {
	data := parseRecord(t, `{
		"name": " Tea ",
		"ingredients": ["Water", "Tea bag"],
		"instructions": ["1. Boil\n2. Steep"],
		"cookingTime": "5 min",
		"tags": ["drink", ""]
	}`)

	r := Assemble(data, nil, "https://example.com/tea")

	assert.Equal(t, "Tea", r.Name)
	assert.Equal(t, []string{"Boil", "Steep"}, r.Instructions)
	assert.Equal(t, []string{"Water", "Tea bag"}, ingredientNames(r.Ingredients))
	require.Len(t, r.IngredientsGroups, 1)
	assert.Empty(t, r.IngredientsGroups[0].Title)
	require.Len(t, r.InstructionGroups, 1)
	assert.Equal(t, []string{"Boil", "Steep"}, r.InstructionGroups[0].Items)
	assert.Equal(t, "https://example.com/tea", r.SourceURL)
	assert.Equal(t, "5 min", r.CookingTime)
	assert.Equal(t, []string{"drink"}, r.Tags)
	assert.Nil(t, r.ImageURI)
	assert.Equal(t, recipe.CurrentSchemaVersion, r.SchemaVersion)
	assert.NotEmpty(t, r.ID)
}

func TestAssembleUntitledGroups(t *testing.T) {
	data := parseRecord(t, `{"name":"Tea","ingredientsGroups":[{"title":"","items":["Water","Tea bag"]}],"instructionGroups":[{"title":"","items":["1) Boil\n2) Steep"]}],"tags":["drink"]}`)

	r := Assemble(data, nil, "")

	assert.Equal(t, []string{"Boil", "Steep"}, r.Instructions)
	assert.Equal(t, []string{"Water", "Tea bag"}, ingredientNames(r.Ingredients))
	for _, ing := range r.Ingredients {
		assert.NotEmpty(t, ing.ID)
	}
	require.Len(t, r.IngredientsGroups, 1)
	assert.Empty(t, r.IngredientsGroups[0].Title)
	assert.Equal(t, []string{"drink"}, r.Tags)
}

func TestAssembleGroupedResponse(t *testing.T) {
	data := parseRecord(t, `{
		"name": "Pizza",
		"ingredientsGroups": [
			{"title": "For the dough", "items": ["Flour", "Yeast"]},
			{"title": "For the sauce", "items": ["Tomatoes"]}
		],
		"instructionGroups": [
			{"title": "For the dough", "items": ["Mix - knead - rest"]},
			{"title": "For the sauce", "items": ["Simmer"]}
		],
		"ingredients": ["ignored"]
	}`)
	uri := "file:///data/recipe-images/1.jpg"

	r := Assemble(data, &uri, "https://example.com/pizza")

	require.Len(t, r.IngredientsGroups, 2)
	assert.Equal(t, "For the dough", r.IngredientsGroups[0].Title)
	assert.Equal(t, []string{"Flour", "Yeast", "Tomatoes"}, ingredientNames(r.Ingredients))
	require.Len(t, r.InstructionGroups, 2)
	assert.Equal(t, []string{"Mix", "knead", "rest"}, r.InstructionGroups[0].Items)
	assert.Equal(t, []string{"Mix", "knead", "rest", "Simmer"}, r.Instructions)
	require.NotNil(t, r.ImageURI)
	assert.Equal(t, uri, *r.ImageURI)
}

func TestAssembleMixedSides(t *testing.T) {
	data := parseRecord(t, `{
		"name": "Salad",
		"ingredientsGroups": [],
		"instructions": "Toss everything"
	}`)

	r := Assemble(data, nil, "")

	assert.Empty(t, r.IngredientsGroups)
	assert.Empty(t, r.Ingredients)
	assert.Equal(t, []string{"Toss everything"}, r.Instructions)
}
