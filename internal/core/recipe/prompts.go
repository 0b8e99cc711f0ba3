package recipe

import (
	"fmt"
	"strings"

	"video-recipe-generator/internal/core/video"
)

const ingredientSystemPrompt = "You extract ingredients and quantities from cooking video transcripts. Always answer with JSON only."

const ingredientUserPrompt = `Read the transcript below and list every **ingredient and quantity** it mentions.

## Instructions:
- Answer with a JSON array only: [{"ingrediente": "...", "quantità": "..."}]
- If a quantity is missing or vague and you had to **estimate** it, add "stimata": true
- Keep quantities as written in the source (e.g. "200 ml", "2 tablespoons")
- Do not add instructions, explanations or any text outside the JSON
- If the same ingredient appears in several variants (e.g. "oil" and "extra virgin olive oil"), keep the most precise one

### Example output:
[
  { "ingrediente": "milk", "quantità": "200 ml" },
  { "ingrediente": "sugar", "quantità": "2 tablespoons" },
  { "ingrediente": "extra virgin olive oil", "quantità": "30 ml", "stimata": true }
]

---

### TEXT TO ANALYSE:

[TRANSCRIPT]
%s

[DESCRIPTION]
%s

[COMMENTS]
%s
`

const recipeSystemPrompt = `You are an assistant specialised in writing cooking recipes. Always write in **English**. Turn the transcript of a cooking video into a **complete recipe** in **JSON format**.

## Rules:
- Write only in **English**
- Fix obvious transcription mistakes in ingredient and dish names
- If an ingredient or quantity is incomplete, **estimate it with common sense**
- Do not add anything that is not in the transcript, description or comments
- Write clearly and simply, for people who rarely cook
- **Output only valid JSON** matching the schema below, with no other text or formatting
- Split each ingredient into name, quantity (a number) and unit
- Flatten every step of the procedure into one sequential method array, stepNumber starting from 1
- Add short lowercase tags that describe the recipe (e.g. ["italian", "easy", "oven", "30-minutes"])

## Required JSON schema:
{
  "title": "string",
  "defaultServes": number,
  "ingredients": [
    {
      "name": "string",
      "quantity": number,
      "unit": "string"
    }
  ],
  "method": [
    {
      "text": "string",
      "stepNumber": number
    }
  ],
  "tags": ["string"]
}`

const recipeUserPrompt = `%s## Transcript:
%s

## Video description:
%s

## Comments:
%s`

func buildIngredientPrompt(transcript string, src Source) string {
	return fmt.Sprintf(ingredientUserPrompt, transcript, src.Description, video.FormatComments(src.Comments))
}

func buildRecipePrompt(transcript string, src Source, ingredients []ProvisionalIngredient) string {
	return fmt.Sprintf(recipeUserPrompt,
		formatIngredients(ingredients),
		transcript,
		src.Description,
		video.FormatComments(src.Comments),
	)
}

// formatIngredients 產生「不可修改」的食材區塊；沒有食材時為空字串
func formatIngredients(ingredients []ProvisionalIngredient) string {
	if len(ingredients) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Extracted ingredients to use in the recipe (do not modify them):\n")
	for _, ing := range ingredients {
		b.WriteString("- ")
		if ing.QuantityText != nil && strings.TrimSpace(*ing.QuantityText) != "" {
			b.WriteString(strings.TrimSpace(*ing.QuantityText))
			b.WriteString(" ")
		}
		b.WriteString(ing.Name)
		if ing.Estimated {
			b.WriteString(" (estimated quantity)")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}
