package recipe

import (
	"context"
	"math"
	"strings"

	"video-recipe-generator/internal/core/ai/provider"
	"video-recipe-generator/internal/pkg/common"

	"go.uber.org/zap"
)

// 份量不在 1..maxServes 時改用 defaultServes
const (
	defaultServes = 2
	maxServes     = 100
)

// wireRecipe 份量與步驟編號先以浮點數接收，模型常輸出 4.0 這類值
type wireRecipe struct {
	Title         string  `json:"title"`
	DefaultServes float64 `json:"defaultServes"`
	Ingredients   []struct {
		Name     string  `json:"name"`
		Quantity float64 `json:"quantity"`
		Unit     string  `json:"unit"`
	} `json:"ingredients"`
	Method []struct {
		Text       string  `json:"text"`
		StepNumber float64 `json:"stepNumber"`
	} `json:"method"`
	Tags []string `json:"tags"`
}

// RecipeService 食譜生成服務
// --------------------------------------------------
type RecipeService struct {
	provider provider.Provider
	options  GenerationOptions
}

// NewRecipeService 創建新的食譜生成服務
func NewRecipeService(p provider.Provider, opts GenerationOptions) *RecipeService {
	return &RecipeService{provider: p, options: opts}
}

// GenerateRecipe 根據轉錄、影片內容與暫定食材生成食譜。
// 供應商錯誤以 *provider.ProviderError 回傳，無法解析時回傳 *GenerationError
func (s *RecipeService) GenerateRecipe(ctx context.Context, transcript string, src Source, ingredients []ProvisionalIngredient) (*Generation, error) {
	resp, err := s.provider.Generate(ctx, &provider.Request{
		Model: s.options.Model,
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: recipeSystemPrompt},
			{Role: provider.RoleUser, Content: buildRecipePrompt(transcript, src, ingredients)},
		},
		MaxTokens:   s.options.MaxTokens,
		Temperature: provider.Float(s.options.Temperature),
		TopP:        provider.Float(1),
	})
	if err != nil {
		return nil, err
	}

	recipe, err := ParseRecipe(resp.Content)
	if err != nil {
		common.LogError("AI 回應無法解析為食譜",
			zap.Error(err),
			zap.Int("ai_response_length", len(resp.Content)),
			zap.String("finish_reason", resp.FinishReason),
		)
		return nil, &GenerationError{Err: err}
	}

	common.LogDebug("AI 回應內容 (recipe/generate)",
		zap.Int("ai_response_length", len(resp.Content)),
		zap.String("ai_response_preview", common.Truncate(resp.Content, 200)),
	)

	return &Generation{
		Recipe: recipe,
		Metadata: GenerationMetadata{
			Model:        resp.Model,
			Usage:        resp.Usage,
			FinishReason: resp.FinishReason,
		},
	}, nil
}

// ParseRecipe 嚴格解析並正規化食譜
func ParseRecipe(content string) (*GeneratedRecipe, error) {
	content = strings.TrimSpace(content)

	if err := recipeValidator.ValidateJSON([]byte(content)); err != nil {
		return nil, &ParseError{Stage: "recipe", Content: content, Err: err}
	}

	var wire wireRecipe
	if err := common.ParseJSON(content, &wire); err != nil {
		return nil, &ParseError{Stage: "recipe", Content: content, Err: err}
	}

	return normalize(&wire), nil
}

// normalize 步驟依陣列順序重新編號，標籤轉小寫並去重
func normalize(w *wireRecipe) *GeneratedRecipe {
	r := &GeneratedRecipe{
		Title:         strings.TrimSpace(w.Title),
		DefaultServes: servings(w.DefaultServes),
		Ingredients:   make([]Ingredient, 0, len(w.Ingredients)),
		Method:        make([]Step, 0, len(w.Method)),
		Tags:          normalizeTags(w.Tags),
	}
	for _, ing := range w.Ingredients {
		r.Ingredients = append(r.Ingredients, Ingredient{
			Name:     strings.TrimSpace(ing.Name),
			Quantity: ing.Quantity,
			Unit:     strings.TrimSpace(ing.Unit),
		})
	}

	for i, step := range w.Method {
		// 確保 stepNumber 正確
		r.Method = append(r.Method, Step{
			Text:       strings.TrimSpace(step.Text),
			StepNumber: i + 1,
		})
	}

	return r
}

// servings 先在浮點數範圍內檢查再轉 int，避免溢位
func servings(v float64) int {
	v = math.Round(v)
	if v < 1 || v > maxServes {
		return defaultServes
	}
	return int(v)
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
