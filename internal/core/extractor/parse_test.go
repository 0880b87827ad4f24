package extractor

import (
	"errors"
	"testing"

	"recipe-keeper/internal/core/recipe"
	"recipe-keeper/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONFromWrappedResponse(t *testing.T) {
	text := "Sure! Here is the recipe:\n```json\n{\"name\": \"Tea\", \"ingredients\": [\"Water\"]}\n```\nEnjoy."

	rec, err := ExtractJSON(text)
	require.NoError(t, err)
	assert.Equal(t, "Tea", rec["name"])
}

func TestExtractJSONNestedGroups(t *testing.T) {
	text := `{"name": "Pie", "ingredientsGroups": [{"title": "Crust", "items": [{"name": "Flour"}]}]}`

	rec, err := ExtractJSON(text)
	require.NoError(t, err)

	groups := recipe.AsIngredientGroups(rec["ingredientsGroups"])
	require.Len(t, groups, 1)
	assert.Equal(t, "Crust", groups[0].Title)
	assert.Equal(t, "Flour", groups[0].Items[0].Name)
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	rec, err := ExtractJSON(`prefix {"name": "Odd {brace} name", "tags": ["a}"]} suffix`)
	require.NoError(t, err)
	assert.Equal(t, "Odd {brace} name", rec["name"])
}

func TestExtractJSONRepairsUnquotedKeys(t *testing.T) {
	rec, err := ExtractJSON(`{name: "Tea", tags: ["hot"]}`)
	require.NoError(t, err)
	assert.Equal(t, "Tea", rec["name"])
	assert.Equal(t, []string{"hot"}, recipe.AsStrings(rec["tags"]))
}

func TestExtractJSONNoObject(t *testing.T) {
	_, err := ExtractJSON("I could not find a recipe on that page.")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestParseResponseRequiresName(t *testing.T) {
	_, err := ParseResponse(`{"ingredients": ["Salt"]}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedResponse))

	_, err = ParseResponse(`{"name": "   "}`)
	assert.ErrorIs(t, err, common.ErrMalformedResponse)
}

func TestParseResponseInvalidJSON(t *testing.T) {
	_, err := ParseResponse(`{"name": "Tea", "ingredients": [}`)
	assert.ErrorIs(t, err, common.ErrMalformedResponse)
	assert.Equal(t, common.ErrCodeMalformedResponse, common.CodeOf(err))
}
