package recipe

import (
	"video-recipe-generator/internal/core/ai/provider"
	"video-recipe-generator/internal/core/video"
)

// Source 轉錄以外、提供給模型的影片內容
type Source struct {
	Description string
	Comments    []video.Comment
}

// ProvisionalIngredient 從轉錄直接取出的暫定食材，數量保留原文
type ProvisionalIngredient struct {
	Name         string  `json:"ingredientName"`
	QuantityText *string `json:"quantityText"`
	Estimated    bool    `json:"estimated"`
}

// Ingredient 食譜食材，數量為數值
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Step 作法步驟，StepNumber 從 1 開始連續
type Step struct {
	Text       string `json:"text"`
	StepNumber int    `json:"stepNumber"`
}

// GeneratedRecipe 模型產生的結構化食譜
type GeneratedRecipe struct {
	Title         string       `json:"title"`
	DefaultServes int          `json:"defaultServes"`
	Ingredients   []Ingredient `json:"ingredients"`
	Method        []Step       `json:"method"`
	Tags          []string     `json:"tags"`
}

// GenerationMetadata 生成時的模型資訊，用於監控
type GenerationMetadata struct {
	Model        string         `json:"model"`
	Usage        provider.Usage `json:"usage"`
	FinishReason string         `json:"finishReason"`
}

// Generation 食譜生成結果
type Generation struct {
	Recipe   *GeneratedRecipe   `json:"recipe"`
	Metadata GenerationMetadata `json:"metadata"`
}

// GenerationOptions 單一模型呼叫的參數
type GenerationOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}
