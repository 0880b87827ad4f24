package extractor

import (
	"fmt"
	"strings"

	"recipe-keeper/internal/core/recipe"
)

const promptTemplate = `Extract recipe information from the following content and respond ONLY with valid JSON in this exact format:

{
  "schemaVersion": %d,
  "name": "Recipe Name",
  "ingredientsGroups": [
    { "title": "", "items": ["ingredient 1", "ingredient 2"] }
  ],
  "instructionGroups": [
    { "title": "", "items": ["step 1", "step 2"] }
  ],
  "tags": ["tag1", "tag2"],
  "cookingTime": "total time as written in the source, or empty",
  "calories": "calories per serving as written in the source, or empty"
}

**CRITICAL: Respond with ONLY the JSON object. No explanations, no additional text.**

**Requirements:**
* Only use information present in the content. Never invent values.
* If cooking time or calories are not stated in the content, leave them as empty strings. Do not estimate.
* Ingredients: include every ingredient with its quantity and unit exactly as written.
* Instructions: split into short, granular steps, one action per item. Do not summarize or omit steps. Do not number the steps.
* Groups: when the recipe has named sections (for example "For the sauce" or "Dough"), create one group per section with that title. When it has no natural sections, use a single group with an empty title.
* Tags: choose 3-5 relevant tags (cuisine, meal type, dietary restrictions, cooking method).
`

// BuildPrompt 組出送往生成服務的提示詞
func BuildPrompt(content string, hints []string, extra string) string {
	var b strings.Builder
	fmt.Fprintf(&b, promptTemplate, recipe.CurrentSchemaVersion)

	if len(hints) > 0 {
		b.WriteString("\n**Possible section names found on the page:**\n")
		for _, h := range hints {
			b.WriteString("- ")
			b.WriteString(h)
			b.WriteByte('\n')
		}
	}

	if extra = strings.TrimSpace(extra); extra != "" {
		b.WriteString("\n**Additional instructions from the user:**\n")
		b.WriteString(extra)
		b.WriteByte('\n')
	}

	b.WriteString("\n**Content:**\n")
	b.WriteString(content)
	return b.String()
}
