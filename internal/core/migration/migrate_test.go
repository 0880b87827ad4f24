package migration

import (
	"encoding/json"
	"testing"

	"recipe-keeper/internal/core/recipe"
	"recipe-keeper/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, common.ParseJSON(raw, &v))
	return v
}

func TestLegacyRecordBecomesSingleUntitledGroup(t *testing.T) {
	in := parse(t, `{"name":"Soup","ingredients":[{"id":"x","name":"Salt"}],"instructions":["Boil","Serve"]}`)

	r := ToRecipe(in)

	assert.Equal(t, "Soup", r.Name)
	assert.Equal(t, recipe.CurrentSchemaVersion, r.SchemaVersion)
	require.Len(t, r.IngredientsGroups, 1)
	assert.Empty(t, r.IngredientsGroups[0].Title)
	assert.Equal(t, []recipe.Ingredient{{ID: "x", Name: "Salt"}}, r.IngredientsGroups[0].Items)
	require.Len(t, r.InstructionGroups, 1)
	assert.Equal(t, []string{"Boil", "Serve"}, r.InstructionGroups[0].Items)
	assert.Equal(t, []string{"Boil", "Serve"}, r.Instructions)
}

func TestAlwaysStampsCurrentVersion(t *testing.T) {
	inputs := []string{
		`{"name":"a"}`,
		`{"name":"a","schemaVersion":0}`,
		`{"name":"a","schemaVersion":1}`,
		`{"name":"a","schemaVersion":2}`,
		`{"name":"a","schemaVersion":99}`,
		`{"name":"a","schemaVersion":"2"}`,
	}
	for _, raw := range inputs {
		out := MigrateToLatest(parse(t, raw))
		assert.Equal(t, recipe.CurrentSchemaVersion, out["schemaVersion"], raw)
	}
}

func TestMigrationIsTotal(t *testing.T) {
	inputs := []any{
		nil,
		42,
		"not a recipe",
		[]any{"a"},
		parse(t, `{"name":7,"ingredients":3,"instructions":{"x":1},"ingredientsGroups":null}`),
		parse(t, `{"ingredientsGroups":"Salt","instructionGroups":[1,2]}`),
		parse(t, `{"steps":[null,"x",{"title":5}]}`),
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			r := ToRecipe(in)
			assert.Equal(t, recipe.CurrentSchemaVersion, r.SchemaVersion)
			assert.NotNil(t, r.IngredientsGroups)
			assert.NotNil(t, r.InstructionGroups)
		})
	}
}

func TestNonObjectInputYieldsEmptyGroups(t *testing.T) {
	r := ToRecipe("garbage")

	assert.Empty(t, r.Name)
	require.Len(t, r.IngredientsGroups, 1)
	assert.Empty(t, r.IngredientsGroups[0].Items)
	require.Len(t, r.InstructionGroups, 1)
	assert.Empty(t, r.InstructionGroups[0].Items)
}

func TestLegacyStepsBecomeTitledGroups(t *testing.T) {
	in := parse(t, `{
		"name": "Pie",
		"steps": [
			{"title": "Crust", "ingredients": ["Flour", {"id": "b", "name": "Butter"}], "instructions": ["Mix", "Chill"]},
			{"title": "Filling", "ingredients": [{"name": "Apples"}], "instructions": "Slice apples"}
		],
		"ingredients": [{"name": "ignored"}]
	}`)

	out := MigrateToLatest(in)
	_, hasSteps := out["steps"]
	assert.False(t, hasSteps)

	r := recipe.FromRecord(out)
	require.Len(t, r.IngredientsGroups, 2)
	assert.Equal(t, "Crust", r.IngredientsGroups[0].Title)
	assert.Equal(t, "Filling", r.IngredientsGroups[1].Title)
	assert.Equal(t, "b", r.IngredientsGroups[0].Items[1].ID)
	require.Len(t, r.InstructionGroups, 2)
	assert.Equal(t, []string{"Mix", "Chill"}, r.InstructionGroups[0].Items)
	assert.Equal(t, []string{"Slice apples"}, r.InstructionGroups[1].Items)

	names := []string{}
	for _, ing := range r.Ingredients {
		names = append(names, ing.Name)
	}
	assert.Equal(t, []string{"Flour", "Butter", "Apples"}, names)
}

func TestEmptyStepsFallBackToFlatFields(t *testing.T) {
	r := ToRecipe(parse(t, `{"name":"x","steps":[],"instructions":["Go"]}`))

	require.Len(t, r.InstructionGroups, 1)
	assert.Equal(t, []string{"Go"}, r.InstructionGroups[0].Items)
}

func TestExistingGroupsAreKept(t *testing.T) {
	in := parse(t, `{
		"id": "r1",
		"name": "Cake",
		"ingredientsGroups": [{"id": "g1", "title": "Batter", "items": [{"id": "i1", "name": "Egg"}]}],
		"instructionGroups": [],
		"ingredients": [{"id": "stale", "name": "Stale"}],
		"instructions": ["Stale"]
	}`)

	r := ToRecipe(in)

	assert.Equal(t, "r1", r.ID)
	require.Len(t, r.IngredientsGroups, 1)
	assert.Equal(t, "g1", r.IngredientsGroups[0].ID)
	assert.Equal(t, "Batter", r.IngredientsGroups[0].Title)
	assert.Equal(t, []recipe.Ingredient{{ID: "i1", Name: "Egg"}}, r.Ingredients)
	assert.Empty(t, r.InstructionGroups)
	assert.Empty(t, r.Instructions)
}

func TestNullGroupsAreTreatedAsMissing(t *testing.T) {
	r := ToRecipe(parse(t, `{"name":"x","ingredientsGroups":null,"ingredients":["Salt"]}`))

	require.Len(t, r.IngredientsGroups, 1)
	require.Len(t, r.IngredientsGroups[0].Items, 1)
	assert.Equal(t, "Salt", r.IngredientsGroups[0].Items[0].Name)
}

func TestMigrationIsIdempotent(t *testing.T) {
	first := ToRecipe(parse(t, `{"id":"r1","name":"Soup","ingredients":[{"id":"x","name":"Salt"}],"instructions":["Boil"]}`))

	data, err := json.Marshal(first)
	require.NoError(t, err)
	second := ToRecipe(parse(t, string(data)))

	assert.Equal(t, first, second)
	assert.False(t, NeedsMigration(parse(t, string(data))))
}

func TestNeedsMigration(t *testing.T) {
	assert.True(t, NeedsMigration(parse(t, `{"name":"a"}`)))
	assert.True(t, NeedsMigration(parse(t, `{"schemaVersion":1}`)))
	assert.False(t, NeedsMigration(parse(t, `{"schemaVersion":2}`)))
	assert.True(t, NeedsMigration("x"))
}
