package recipe

import "video-recipe-generator/internal/core/ai/schema"

const ingredientListSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["ingrediente"],
		"properties": {
			"ingrediente": {"type": "string", "minLength": 1},
			"quantità": {"type": ["string", "number", "null"]},
			"stimata": {"type": "boolean"}
		}
	}
}`

const generatedRecipeSchema = `{
	"type": "object",
	"required": ["title", "defaultServes", "ingredients", "method", "tags"],
	"properties": {
		"title": {"type": "string", "minLength": 1},
		"defaultServes": {"type": "number"},
		"ingredients": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "quantity", "unit"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"quantity": {"type": "number"},
					"unit": {"type": "string"}
				}
			}
		},
		"method": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["text"],
				"properties": {
					"text": {"type": "string", "minLength": 1},
					"stepNumber": {"type": "number"}
				}
			}
		},
		"tags": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`

var (
	ingredientValidator = schema.MustCompile("ingredient list", []byte(ingredientListSchema))
	recipeValidator     = schema.MustCompile("recipe", []byte(generatedRecipeSchema))
)
